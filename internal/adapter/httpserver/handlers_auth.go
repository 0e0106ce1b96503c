package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lekesiz/HECS/internal/domain"
	apperrors "github.com/lekesiz/HECS/internal/platform/errors"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.ValidationError("username and password are required")
	}

	token, user, err := s.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return mapDomainError(err)
	}

	resp := loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write login response: %w", err)
	}
	return nil
}

func (s *Server) handleCurrentUser(c echo.Context) error {
	user, err := s.auth.CurrentUser(c.Request().Context(), currentUsername(c))
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, user); err != nil {
		return fmt.Errorf("failed to write user response: %w", err)
	}
	return nil
}
