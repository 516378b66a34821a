// Package database provides the PostgreSQL connection pool and the datastore
// adapter used by the database probe.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lllypuk/healthd/internal/config"
)

// ErrPoolClosed is returned when the datastore is used without a pool.
var ErrPoolClosed = errors.New("database: pool is not initialized")

// ConnString builds a pgx connection string from configuration.
// cfg.URL wins when present.
func ConnString(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}
	switch {
	case cfg.User != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.User, cfg.Password)
	case cfg.User != "":
		u.User = url.User(cfg.User)
	}

	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// PoolConfig parses the connection string and applies pool sizing and timeouts.
func PoolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	return poolCfg, nil
}

// NewPool creates a PostgreSQL connection pool. Connections are opened lazily,
// so an unreachable server does not prevent startup.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	return pool, nil
}

// Pool is the subset of *pgxpool.Pool used by Datastore.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Datastore adapts a pgx pool to the health probe's datastore contract.
type Datastore struct {
	pool   Pool
	logger *slog.Logger
}

// NewDatastore wraps pool.
func NewDatastore(pool Pool, logger *slog.Logger) *Datastore {
	if logger == nil {
		logger = slog.Default()
	}
	return &Datastore{pool: pool, logger: logger}
}

// Exec runs query on a pooled connection. The connection is returned to the
// pool on every path.
func (d *Datastore) Exec(ctx context.Context, query string) error {
	if d == nil || d.pool == nil {
		return ErrPoolClosed
	}

	start := time.Now()
	tag, err := d.pool.Exec(ctx, query)
	if err != nil {
		return err
	}

	d.logger.DebugContext(ctx, "datastore statement executed",
		slog.String("command", tag.String()),
		slog.Duration("latency", time.Since(start)),
	)
	return nil
}

// Ping verifies that a connection can be acquired.
func (d *Datastore) Ping(ctx context.Context) error {
	if d == nil || d.pool == nil {
		return ErrPoolClosed
	}
	return d.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (d *Datastore) Close() {
	if d != nil && d.pool != nil {
		d.pool.Close()
	}
}
