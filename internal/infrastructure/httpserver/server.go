package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// Default server configuration values.
const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 8080
	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second

	// Health requests carry no body and a handful of headers.
	maxHeaderBytes = 16 << 10
)

// probesPerReport is the number of sequential probes a report waits for.
const probesPerReport = 2

// ErrWriteTimeoutTooShort is returned when a degraded report could be cut off
// before both probes have timed out.
var ErrWriteTimeoutTooShort = errors.New("httpserver: write timeout does not cover a full health evaluation")

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// ProbeTimeout is the per-probe deadline of the health checker served
	// by this server. Zero means the probes are unbounded.
	ProbeTimeout time.Duration
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            DefaultHost,
		Port:            DefaultPort,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Validate checks that WriteTimeout leaves room for both probes to time out.
func (c ServerConfig) Validate() error {
	budget := probesPerReport * c.ProbeTimeout
	if budget > 0 && c.WriteTimeout > 0 && c.WriteTimeout <= budget {
		return fmt.Errorf("%w: write timeout %s, probe timeout %s", ErrWriteTimeoutTooShort, c.WriteTimeout, c.ProbeTimeout)
	}
	return nil
}

// Address returns the host:port the server binds to.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Server serves the health endpoints over HTTP.
type Server struct {
	echo   *echo.Echo
	config ServerConfig
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server. It fails when the write timeout would cut off
// a report whose probes are both timing out.
func NewServer(config ServerConfig, logger *slog.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = config.ReadTimeout
	e.Server.ReadHeaderTimeout = DefaultReadHeaderTimeout
	e.Server.WriteTimeout = config.WriteTimeout
	e.Server.IdleTimeout = DefaultIdleTimeout
	e.Server.MaxHeaderBytes = maxHeaderBytes

	return &Server{
		echo:   e,
		config: config,
		logger: logger,
	}, nil
}

// Echo returns the underlying Echo instance for middleware and route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Address returns the configured bind address.
func (s *Server) Address() string {
	return s.config.Address()
}

// Listen binds the configured address. Calling it again is a no-op.
// Port 0 picks a free port; Addr reports the one chosen.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Address(), err)
	}

	s.listener = ln
	s.echo.Listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves until ctx is cancelled, then lets in-flight health evaluations
// finish for at most ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "serving health endpoints",
		slog.String("address", s.Addr().String()),
		slog.Duration("write_timeout", s.config.WriteTimeout),
		slog.Duration("probe_timeout", s.config.ProbeTimeout),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.Address())
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.InfoContext(ctx, "draining in-flight requests", slog.Duration("timeout", s.config.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}

	s.logger.InfoContext(ctx, "HTTP server stopped")
	return nil
}
