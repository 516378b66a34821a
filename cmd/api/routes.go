package main

import (
	"github.com/lllypuk/healthd/internal/app"
	"github.com/lllypuk/healthd/internal/infrastructure/httpserver"
	"github.com/lllypuk/healthd/internal/middleware"
)

// SetupRoutes configures middleware and every endpoint on the server.
func SetupRoutes(server *httpserver.Server, c *app.Container) *httpserver.Router {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.Logger = c.Logger

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = c.Config.Server.CORSOriginList()

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = c.Logger
	recoveryConfig.DisablePrintStack = c.Config.IsProduction()

	router := httpserver.NewRouter(server.Echo(), httpserver.RouterConfig{
		Logger:         c.Logger,
		CORSConfig:     corsConfig,
		LoggingConfig:  loggingConfig,
		RecoveryConfig: recoveryConfig,
	})

	router.RegisterHealthEndpoints(c.Checker, c.Metrics)
	router.RegisterMetricsEndpoint(c.Registry)

	if c.Config.IsDevelopment() {
		router.PrintRoutes()
	}

	return router
}
