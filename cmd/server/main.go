package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/lekesiz/HECS/internal/adapter/httpserver"
	"github.com/lekesiz/HECS/internal/adapter/postgres"
	"github.com/lekesiz/HECS/internal/adapter/redis"
	"github.com/lekesiz/HECS/internal/app"
	"github.com/lekesiz/HECS/internal/auth"
	"github.com/lekesiz/HECS/internal/platform/config"
	"github.com/lekesiz/HECS/internal/platform/logging"
	"github.com/lekesiz/HECS/internal/platform/retry"
	"github.com/lekesiz/HECS/internal/platform/version"
	"github.com/lekesiz/HECS/internal/realtime"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	var pool *pgxpool.Pool

	policy := retry.DefaultPolicy()
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Database not ready, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		var err error
		pool, err = postgres.Connect(ctx, cfg.DatabaseURL)
		return err
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	policy := retry.DefaultPolicy()
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not ready, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}

	if err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return client.Ping(ctx)
	}); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return client
}

func runGracefulShutdown(srv *httpserver.Server, registry *realtime.Registry) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		registry.Shutdown()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting",
		"env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "commit", info.Commit)

	startupCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool := setupDB(startupCtx, cfg)
	defer pool.Close()

	redisClient := setupRedis(startupCtx, cfg)
	defer func() { _ = redisClient.Close() }()

	taskRepo := postgres.NewTaskRepo(pool)
	deviceRepo := postgres.NewDeviceRepo(pool)
	customerRepo := postgres.NewCustomerRepo(pool)
	userRepo := postgres.NewUserRepo(pool)

	presence := redis.NewDevicePresence(redisClient, cfg.PresenceTTL)

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry, clock)

	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry, clock)

	taskService := app.NewTaskService(taskRepo, deviceRepo, dispatcher, clock)
	deviceService := app.NewDeviceService(deviceRepo, presence, dispatcher, clock)
	customerService := app.NewCustomerService(customerRepo, dispatcher, clock)
	authService := app.NewAuthService(userRepo, tokenService, clock)

	wsHandler := realtime.NewHandler(registry, tokenService, clock, realtime.HandlerConfig{
		HandshakeTimeout: cfg.WSHandshakeTimeout,
		SendBuffer:       cfg.WSSendBuffer,
		AllowedOrigins:   cfg.AllowedOrigins,
	})

	healthChecks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "redis", Check: redisClient.Ping},
	}

	srv := httpserver.NewServer(cfg, taskService, deviceService, customerService,
		authService, tokenService, wsHandler.Handle, healthChecks)

	done := runGracefulShutdown(srv, registry)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Application stopped")
}
