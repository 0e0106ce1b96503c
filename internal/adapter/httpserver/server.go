// Package httpserver is the HTTP surface of the control plane: the REST API,
// the websocket endpoint, and the operational probes.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lekesiz/HECS/internal/app"
	"github.com/lekesiz/HECS/internal/domain"
	"github.com/lekesiz/HECS/internal/platform/config"
)

type taskService interface {
	Create(ctx context.Context, req app.CreateTaskRequest) (*domain.Task, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, filter domain.TaskFilter) ([]*domain.Task, error)
	Update(ctx context.Context, id uuid.UUID, req app.UpdateTaskRequest) (*domain.Task, error)
	Retry(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*domain.TaskStats, error)
}

type deviceService interface {
	Create(ctx context.Context, req app.CreateDeviceRequest) (*domain.Device, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Device, error)
	List(ctx context.Context, filter domain.DeviceFilter) ([]*domain.Device, error)
	Update(ctx context.Context, id uuid.UUID, req app.UpdateDeviceRequest) (*domain.Device, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Heartbeat(ctx context.Context, id uuid.UUID) (*domain.Device, error)
	Stats(ctx context.Context) (*domain.DeviceStats, error)
}

type customerService interface {
	Create(ctx context.Context, req app.CreateCustomerRequest) (*domain.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	List(ctx context.Context, filter domain.CustomerFilter) ([]*domain.Customer, error)
	Update(ctx context.Context, id uuid.UUID, req app.UpdateCustomerRequest) (*domain.Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type authService interface {
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	CurrentUser(ctx context.Context, username string) (*domain.User, error)
}

type tokenVerifier interface {
	Verify(token string) (string, error)
}

// HealthCheck is a named health check function.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	tasks     taskService
	devices   deviceService
	customers customerService
	auth      authService
	verifier  tokenVerifier

	websocketHandler echo.HandlerFunc
	healthChecks     []HealthCheck
	startTime        time.Time
}

func NewServer(cfg *config.Config, tasks taskService, devices deviceService, customers customerService, auth authService, verifier tokenVerifier, websocketHandler echo.HandlerFunc, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		tasks:            tasks,
		devices:          devices,
		customers:        customers,
		auth:             auth,
		verifier:         verifier,
		websocketHandler: websocketHandler,
		healthChecks:     healthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
