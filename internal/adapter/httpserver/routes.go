package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/lekesiz/HECS/internal/platform/errors"
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(apperrors.Middleware())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.config.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	s.registerHealthRoutes()

	s.echo.GET("/ws", s.websocketHandler)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api/v1")
	api.POST("/auth/login", s.handleLogin)

	protected := api.Group("", s.requireAuth)
	protected.GET("/auth/me", s.handleCurrentUser)

	protected.GET("/tasks", s.handleListTasks)
	protected.POST("/tasks", s.handleCreateTask)
	protected.GET("/tasks/stats", s.handleTaskStats)
	protected.GET("/tasks/:id", s.handleGetTask)
	protected.PATCH("/tasks/:id", s.handleUpdateTask)
	protected.DELETE("/tasks/:id", s.handleDeleteTask)
	protected.POST("/tasks/:id/retry", s.handleRetryTask)

	protected.GET("/devices", s.handleListDevices)
	protected.POST("/devices", s.handleCreateDevice)
	protected.GET("/devices/stats", s.handleDeviceStats)
	protected.GET("/devices/:id", s.handleGetDevice)
	protected.PATCH("/devices/:id", s.handleUpdateDevice)
	protected.DELETE("/devices/:id", s.handleDeleteDevice)
	protected.POST("/devices/:id/heartbeat", s.handleDeviceHeartbeat)

	protected.GET("/customers", s.handleListCustomers)
	protected.POST("/customers", s.handleCreateCustomer)
	protected.GET("/customers/:id", s.handleGetCustomer)
	protected.PATCH("/customers/:id", s.handleUpdateCustomer)
	protected.DELETE("/customers/:id", s.handleDeleteCustomer)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Info("Request", attrs...)
			return nil
		},
	})
}
