// Package app wires configuration, infrastructure clients and the health
// checker into a single container shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lllypuk/healthd/internal/config"
	"github.com/lllypuk/healthd/internal/health"
	"github.com/lllypuk/healthd/internal/infrastructure/cache"
	"github.com/lllypuk/healthd/internal/infrastructure/database"
	"github.com/lllypuk/healthd/internal/infrastructure/diagnostics"
	"github.com/lllypuk/healthd/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// Startup connectivity checks are advisory; a dependency that is down at
// boot must still be reported by the health endpoint.
const startupPingTimeout = 3 * time.Second

// Container holds all application dependencies and manages their lifecycle.
type Container struct {
	// Configuration
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	Datastore *database.Datastore
	Redis     *redis.Client
	Caches    *cache.Manager

	// Observability
	Registry *prometheus.Registry
	Metrics  *metrics.HealthMetrics
	Reporter *diagnostics.LogReporter

	// Engine
	Checker *health.Checker

	skipStartupPing bool
}

// ContainerOption configures the Container.
type ContainerOption func(*Container)

// WithLogger sets a custom logger for the container.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithRegistry sets the prometheus registry metrics are registered with.
func WithRegistry(registry *prometheus.Registry) ContainerOption {
	return func(c *Container) {
		if registry != nil {
			c.Registry = registry
		}
	}
}

// WithoutStartupPing skips the advisory connectivity checks at startup.
func WithoutStartupPing() ContainerOption {
	return func(c *Container) {
		c.skipStartupPing = true
	}
}

// NewContainer creates the dependency container. Clients connect lazily, so
// unreachable dependencies do not fail construction.
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	c := &Container{
		Config: cfg,
		Logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.setupDatabase(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("database: %w", err)
	}

	c.setupRedis(ctx)
	if err := c.setupCaches(); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.setupObservability()
	c.setupChecker()

	return c, nil
}

// setupDatabase creates the PostgreSQL pool and datastore adapter.
func (c *Container) setupDatabase(ctx context.Context) error {
	pool, err := database.NewPool(ctx, c.Config.Database)
	if err != nil {
		return err
	}

	c.Datastore = database.NewDatastore(pool, c.Logger)

	if c.skipStartupPing {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()

	if pingErr := c.Datastore.Ping(pingCtx); pingErr != nil {
		c.Logger.WarnContext(ctx, "database unreachable at startup",
			slog.String("connection", c.Config.Database.Connection),
			slog.String("error", pingErr.Error()),
		)
		return nil
	}

	c.Logger.InfoContext(ctx, "connected to database",
		slog.String("connection", c.Config.Database.Connection),
	)
	return nil
}

// setupRedis creates the Redis client.
func (c *Container) setupRedis(ctx context.Context) {
	c.Redis = cache.NewRedisClient(c.Config.Redis)

	if c.skipStartupPing {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()

	if err := c.Redis.Ping(pingCtx).Err(); err != nil {
		c.Logger.WarnContext(ctx, "redis unreachable at startup",
			slog.String("addr", c.Config.Redis.Addr),
			slog.String("error", err.Error()),
		)
		return
	}

	c.Logger.InfoContext(ctx, "connected to Redis", slog.String("addr", c.Config.Redis.Addr))
}

// setupCaches registers the remote cache stores and checks that the store
// named for the cache probe is one of them.
func (c *Container) setupCaches() error {
	c.Caches = cache.NewManager()
	c.Caches.Register(config.StoreRedis, cache.NewRedisStore(c.Redis, c.Config.Cache.Prefix))

	if _, err := c.Caches.Store(c.Config.Health.CacheStore); err != nil {
		return fmt.Errorf("health.cache_store: %w", err)
	}

	c.Logger.Debug("cache stores registered",
		slog.Any("stores", c.Caches.Names()),
		slog.String("probed", c.Config.Health.CacheStore),
	)
	return nil
}

// setupObservability creates the metrics registry and the diagnostic sink.
func (c *Container) setupObservability() {
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
		c.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	c.Metrics = metrics.NewHealthMetrics(c.Registry)
	c.Reporter = diagnostics.NewLogReporter(c.Logger)
}

// setupChecker builds the health checker from the wired dependencies.
func (c *Container) setupChecker() {
	c.Checker = health.NewChecker(c.Datastore, c.Caches,
		health.WithConnectionName(c.Config.Database.Connection),
		health.WithCacheStore(c.Config.Health.CacheStore),
		health.WithProbeTimeout(c.Config.Health.ProbeTimeout),
		health.WithReporter(c.Reporter),
		health.WithObserver(c.Metrics),
	)
}

// Close gracefully closes all container resources.
// Resources are closed in reverse order of initialization.
func (c *Container) Close() error {
	var errs []error

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		} else {
			c.Logger.Debug("redis connection closed")
		}
	}

	if c.Datastore != nil {
		c.Datastore.Close()
		c.Logger.Debug("database pool closed")
	}

	return errors.Join(errs...)
}
