// Package main provides the health-check API server entry point.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lllypuk/healthd/internal/app"
	"github.com/lllypuk/healthd/internal/config"
	"github.com/lllypuk/healthd/internal/infrastructure/httpserver"
	"github.com/lllypuk/healthd/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		//nolint:sloglint // No context available before logger setup
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting healthd API server",
		slog.String("version", version.Version),
		slog.String("environment", getEnvironment(cfg)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	container, err := app.NewContainer(ctx, cfg, app.WithLogger(logger))
	if err != nil {
		logger.Error("failed to build container", slog.String("error", err.Error()))
		os.Exit(1) //nolint:gocritic // stop() is only a signal unregister
	}

	server, err := httpserver.NewServer(serverConfig(cfg), logger)
	if err != nil {
		logger.Error("invalid server configuration", slog.String("error", err.Error()))
		_ = container.Close()
		os.Exit(1)
	}
	SetupRoutes(server, container)

	if runErr := run(ctx, server, container, logger); runErr != nil {
		logger.Error("server error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then closes the container once
// in-flight requests have drained.
func run(ctx context.Context, server *httpserver.Server, container *app.Container, logger *slog.Logger) error {
	serveErr := server.Run(ctx)

	closeCtx := context.WithoutCancel(ctx)
	if err := container.Close(); err != nil {
		logger.ErrorContext(closeCtx, "container close error", slog.String("error", err.Error()))
	}

	logger.InfoContext(closeCtx, "server shutdown complete")
	return serveErr
}

// serverConfig maps the configuration onto the HTTP server settings. The
// probe timeout travels along so the server can check its write timeout.
func serverConfig(cfg *config.Config) httpserver.ServerConfig {
	return httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		ProbeTimeout:    cfg.Health.ProbeTimeout,
	}
}

// getEnvironment returns the environment name based on configuration.
func getEnvironment(cfg *config.Config) string {
	if cfg.IsDevelopment() {
		return "development"
	}
	if cfg.IsProduction() {
		return "production"
	}
	return "unknown"
}
