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

func (s *Server) handleListTasks(c echo.Context) error {
	offset, limit := parsePagination(c)
	filter := domain.TaskFilter{
		Status:   domain.TaskStatus(c.QueryParam("status")),
		TaskType: c.QueryParam("task_type"),
		Offset:   offset,
		Limit:    limit,
	}
	if raw := c.QueryParam("device_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.ValidationError("invalid device_id")
		}
		filter.DeviceID = id
	}

	tasks, err := s.tasks.List(c.Request().Context(), filter)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, tasks); err != nil {
		return fmt.Errorf("failed to write tasks response: %w", err)
	}
	return nil
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var req app.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	task, err := s.tasks.Create(c.Request().Context(), req)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusCreated, task); err != nil {
		return fmt.Errorf("failed to write task response: %w", err)
	}
	return nil
}

func (s *Server) handleGetTask(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	task, err := s.tasks.Get(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, task); err != nil {
		return fmt.Errorf("failed to write task response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateTask(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	var req app.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	task, err := s.tasks.Update(c.Request().Context(), id, req)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, task); err != nil {
		return fmt.Errorf("failed to write task response: %w", err)
	}
	return nil
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(c.Request().Context(), id); err != nil {
		return mapDomainError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRetryTask(c echo.Context) error {
	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	task, err := s.tasks.Retry(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, task); err != nil {
		return fmt.Errorf("failed to write task response: %w", err)
	}
	return nil
}

func (s *Server) handleTaskStats(c echo.Context) error {
	stats, err := s.tasks.Stats(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	if err := c.JSON(http.StatusOK, stats); err != nil {
		return fmt.Errorf("failed to write stats response: %w", err)
	}
	return nil
}
