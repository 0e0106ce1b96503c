package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lekesiz/HECS/internal/app"
	"github.com/lekesiz/HECS/internal/domain"
	apperrors "github.com/lekesiz/HECS/internal/platform/errors"
)

func (s *Server) handleListCustomers(c echo.Context) error {
	offset, limit := parsePagination(c)
	filter := domain.CustomerFilter{
		ActiveOnly: c.QueryParam("active") == "true",
		Offset:     offset,
		Limit:      limit,
	}

	customers, err := s.customers.List(c.Request().Context(), filter)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, customers); err != nil {
		return fmt.Errorf("failed to write customers response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateCustomer(c echo.Context) error {
	var req app.CreateCustomerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	customer, err := s.customers.Create(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusCreated, customer); err != nil {
		return fmt.Errorf("failed to write customer response: %w", err)
	}
	return nil
}

func (s *Server) handleGetCustomer(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	customer, err := s.customers.Get(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, customer); err != nil {
		return fmt.Errorf("failed to write customer response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateCustomer(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req app.UpdateCustomerRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	customer, err := s.customers.Update(c.Request().Context(), id, req)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, customer); err != nil {
		return fmt.Errorf("failed to write customer response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteCustomer(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := s.customers.Delete(c.Request().Context(), id); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
