package httpserver

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lekesiz/HECS/internal/app"
	"github.com/lekesiz/HECS/internal/domain"
	apperrors "github.com/lekesiz/HECS/internal/platform/errors"
)

func (s *Server) handleListDevices(c echo.Context) error {
	offset, limit := parsePagination(c)
	filter := domain.DeviceFilter{
		Status: domain.DeviceStatus(c.QueryParam("status")),
		Offset: offset,
		Limit:  limit,
	}
	if raw := c.QueryParam("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.ValidationError("invalid customer_id")
		}
		filter.CustomerID = id
	}

	devices, err := s.devices.List(c.Request().Context(), filter)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, devices); err != nil {
		return fmt.Errorf("failed to write devices response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateDevice(c echo.Context) error {
	var req app.CreateDeviceRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	device, err := s.devices.Create(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusCreated, device); err != nil {
		return fmt.Errorf("failed to write device response: %w", err)
	}
	return nil
}

func (s *Server) handleGetDevice(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	device, err := s.devices.Get(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, device); err != nil {
		return fmt.Errorf("failed to write device response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateDevice(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req app.UpdateDeviceRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	device, err := s.devices.Update(c.Request().Context(), id, req)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, device); err != nil {
		return fmt.Errorf("failed to write device response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteDevice(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := s.devices.Delete(c.Request().Context(), id); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeviceHeartbeat(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	device, err := s.devices.Heartbeat(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, device); err != nil {
		return fmt.Errorf("failed to write device response: %w", err)
	}
	return nil
}

func (s *Server) handleDeviceStats(c echo.Context) error {
	stats, err := s.devices.Stats(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, stats); err != nil {
		return fmt.Errorf("failed to write stats response: %w", err)
	}
	return nil
}
