package httpserver

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lekesiz/HECS/internal/platform/correlation"
	apperrors "github.com/lekesiz/HECS/internal/platform/errors"
)

const contextKeyUsername = "username"

// correlationMiddleware stamps every request with a correlation ID, honoring
// one supplied by the caller. The ID rides the request context so the slog
// handler picks it up, and is echoed back for client-side tracing.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = correlation.NewID()
		}
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

// requireAuth guards API routes with a Bearer token. The verified subject
// is stored on the request context for handlers and logging.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			return apperrors.UnauthorizedError("missing bearer token")
		}

		subject, err := s.verifier.Verify(token)
		if err != nil {
			return apperrors.UnauthorizedError("invalid or expired token")
		}

		c.Set(contextKeyUsername, subject)
		c.Set("userID", subject)
		return next(c)
	}
}

func currentUsername(c echo.Context) string {
	if v, ok := c.Get(contextKeyUsername).(string); ok {
		return v
	}
	return ""
}
