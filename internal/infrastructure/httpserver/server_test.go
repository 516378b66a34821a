package httpserver_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/lllypuk/healthd/internal/health"
	"github.com/lllypuk/healthd/internal/infrastructure/httpserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultServerConfig(t *testing.T) {
	config := httpserver.DefaultServerConfig()

	assert.Equal(t, httpserver.DefaultHost, config.Host)
	assert.Equal(t, httpserver.DefaultPort, config.Port)
	assert.Equal(t, httpserver.DefaultReadTimeout, config.ReadTimeout)
	assert.Equal(t, httpserver.DefaultWriteTimeout, config.WriteTimeout)
	assert.Equal(t, httpserver.DefaultShutdownTimeout, config.ShutdownTimeout)
	assert.Zero(t, config.ProbeTimeout)
	assert.NoError(t, config.Validate())
}

func TestServerConfig_Validate(t *testing.T) {
	tests := []struct {
		name         string
		writeTimeout time.Duration
		probeTimeout time.Duration
		wantErr      bool
	}{
		{"write timeout above both probes", 5 * time.Second, 2 * time.Second, false},
		{"write timeout equal to both probes", 4 * time.Second, 2 * time.Second, true},
		{"write timeout below one probe", time.Second, 2 * time.Second, true},
		{"unbounded probes", time.Second, 0, false},
		{"unbounded writes", 0, 2 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := httpserver.ServerConfig{
				WriteTimeout: tt.writeTimeout,
				ProbeTimeout: tt.probeTimeout,
			}

			err := config.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, httpserver.ErrWriteTimeoutTooShort)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewServer_RejectsShortWriteTimeout(t *testing.T) {
	server, err := httpserver.NewServer(httpserver.ServerConfig{
		Host:         "127.0.0.1",
		WriteTimeout: 3 * time.Second,
		ProbeTimeout: 2 * time.Second,
	}, nil)

	require.ErrorIs(t, err, httpserver.ErrWriteTimeoutTooShort)
	assert.Nil(t, server)
}

func TestNewServer_AppliesTimeouts(t *testing.T) {
	server, err := httpserver.NewServer(httpserver.ServerConfig{
		Host:         "127.0.0.1",
		Port:         3000,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ProbeTimeout: 5 * time.Second,
	}, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, server.Echo())

	s := server.Echo().Server
	assert.Equal(t, 15*time.Second, s.ReadTimeout)
	assert.Equal(t, 15*time.Second, s.WriteTimeout)
	assert.Equal(t, httpserver.DefaultReadHeaderTimeout, s.ReadHeaderTimeout)
	assert.Equal(t, httpserver.DefaultIdleTimeout, s.IdleTimeout)
	assert.Positive(t, s.MaxHeaderBytes)
	assert.True(t, server.Echo().HideBanner)
}

func TestServerAddress(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		port     int
		expected string
	}{
		{"default", httpserver.DefaultHost, httpserver.DefaultPort, "0.0.0.0:8080"},
		{"localhost", "localhost", 3000, "localhost:3000"},
		{"ipv6 loopback", "::1", 9090, "[::1]:9090"},
		{"any port", "127.0.0.1", 0, "127.0.0.1:0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := httpserver.NewServer(httpserver.ServerConfig{Host: tt.host, Port: tt.port}, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, server.Address())
		})
	}
}

func TestServerListen(t *testing.T) {
	server, err := httpserver.NewServer(httpserver.ServerConfig{Host: "127.0.0.1"}, nil)
	require.NoError(t, err)
	assert.Nil(t, server.Addr())

	require.NoError(t, server.Listen())
	t.Cleanup(func() { _ = server.Echo().Listener.Close() })

	addr := server.Addr()
	require.NotNil(t, addr)
	assert.NotEqual(t, "127.0.0.1:0", addr.String())

	require.NoError(t, server.Listen())
	assert.Equal(t, addr, server.Addr())
}

func TestServerListen_PortInUse(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = taken.Close() })

	port := taken.Addr().(*net.TCPAddr).Port
	server, err := httpserver.NewServer(httpserver.ServerConfig{Host: "127.0.0.1", Port: port}, nil)
	require.NoError(t, err)

	err = server.Listen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), strconv.Itoa(port))
	assert.Nil(t, server.Addr())
}

func startServer(t *testing.T, server *httpserver.Server) (context.CancelFunc, <-chan error) {
	t.Helper()

	require.NoError(t, server.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()
	t.Cleanup(cancel)

	return cancel, done
}

func waitStopped(t *testing.T, done <-chan error) {
	t.Helper()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestServerRun_ServesUntilCancelled(t *testing.T) {
	server, err := httpserver.NewServer(httpserver.ServerConfig{
		Host:            "127.0.0.1",
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: time.Second,
		ProbeTimeout:    time.Second,
	}, nil)
	require.NoError(t, err)

	evaluator := &stubEvaluator{checks: health.Checks{Database: true, Redis: true}}
	httpserver.NewHealthEndpoints(evaluator, nil).Register(server.Echo())

	cancel, done := startServer(t, server)
	base := "http://" + server.Addr().String()

	resp, err := http.Get(base + "/up")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)

	cancel()
	waitStopped(t, done)

	_, err = http.Get(base + "/up")
	assert.Error(t, err)
}

// slowEvaluator blocks each evaluation until release is closed.
type slowEvaluator struct {
	started chan struct{}
	release chan struct{}
}

func (s *slowEvaluator) Evaluate(context.Context) (health.Report, int) {
	close(s.started)
	<-s.release
	report := health.NewReport(health.Checks{Database: true, Redis: false}, time.Now())
	return report, report.HTTPStatus()
}

func TestServerRun_DrainsInFlightReport(t *testing.T) {
	server, err := httpserver.NewServer(httpserver.ServerConfig{
		Host:            "127.0.0.1",
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 3 * time.Second,
		ProbeTimeout:    time.Second,
	}, nil)
	require.NoError(t, err)

	evaluator := &slowEvaluator{started: make(chan struct{}), release: make(chan struct{})}
	httpserver.NewHealthEndpoints(evaluator, nil).Register(server.Echo())

	cancel, done := startServer(t, server)

	type result struct {
		code int
		body string
		err  error
	}
	responses := make(chan result, 1)
	go func() {
		resp, err := http.Get("http://" + server.Addr().String() + "/health")
		if err != nil {
			responses <- result{err: err}
			return
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		responses <- result{code: resp.StatusCode, body: string(body), err: err}
	}()

	select {
	case <-evaluator.started:
	case <-time.After(5 * time.Second):
		t.Fatal("report was never requested")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)
	close(evaluator.release)

	res := <-responses
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusServiceUnavailable, res.code)
	assert.Contains(t, res.body, `"status":"degraded"`)

	waitStopped(t, done)
}
