package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lllypuk/healthd/internal/app"
	"github.com/lllypuk/healthd/internal/config"
	"github.com/lllypuk/healthd/internal/infrastructure/httpserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		logLevel string
		expected string
	}{
		{"development when local", config.EnvLocal, "info", "development"},
		{"development when debug", config.EnvProduction, "debug", "development"},
		{"production", config.EnvProduction, "info", "production"},
		{"unknown for testing env", config.EnvTesting, "info", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.App.Env = tt.env
			cfg.Log.Level = tt.logLevel
			assert.Equal(t, tt.expected, getEnvironment(cfg))
		})
	}
}

func TestServerConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server = config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            9090,
		ReadTimeout:     time.Second,
		WriteTimeout:    2 * time.Second,
		ShutdownTimeout: 3 * time.Second,
	}
	cfg.Health.ProbeTimeout = 750 * time.Millisecond

	got := serverConfig(cfg)

	assert.Equal(t, "127.0.0.1", got.Host)
	assert.Equal(t, 9090, got.Port)
	assert.Equal(t, time.Second, got.ReadTimeout)
	assert.Equal(t, 2*time.Second, got.WriteTimeout)
	assert.Equal(t, 3*time.Second, got.ShutdownTimeout)
	assert.Equal(t, 750*time.Millisecond, got.ProbeTimeout)
	assert.NoError(t, got.Validate())

	cfg.Health.ProbeTimeout = time.Second
	assert.ErrorIs(t, serverConfig(cfg).Validate(), httpserver.ErrWriteTimeoutTooShort)
}

func newTestContainer(t *testing.T) *app.Container {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Database.Host = "127.0.0.1"
	cfg.Database.Port = 1
	cfg.Database.ConnectTimeout = 200 * time.Millisecond
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 200 * time.Millisecond
	cfg.Health.ProbeTimeout = 2 * time.Second

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	c, err := app.NewContainer(context.Background(), cfg, app.WithLogger(logger), app.WithoutStartupPing())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetupRoutes(t *testing.T) {
	c := newTestContainer(t)
	server, err := httpserver.NewServer(serverConfig(c.Config), c.Logger)
	require.NoError(t, err)
	router := SetupRoutes(server, c)
	e := router.Echo()

	t.Run("report is degraded without dependencies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, map[string]any{"database": false, "redis": false}, body["checks"])
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})

	t.Run("liveness is ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/up", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "healthd_probe_total")
	})
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	c := newTestContainer(t)
	server, err := httpserver.NewServer(httpserver.ServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: time.Second,
		ProbeTimeout:    time.Second,
	}, c.Logger)
	require.NoError(t, err)
	SetupRoutes(server, c)
	require.NoError(t, server.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, server, c, c.Logger)
	}()

	resp, err := http.Get("http://" + server.Addr().String() + "/up")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestSetupRoutes_CORSOriginsFromConfig(t *testing.T) {
	c := newTestContainer(t)
	c.Config.Server.CORSOrigins = "https://status.example.com"

	server, err := httpserver.NewServer(serverConfig(c.Config), c.Logger)
	require.NoError(t, err)
	e := SetupRoutes(server, c).Echo()

	for origin, expected := range map[string]string{
		"https://status.example.com": "https://status.example.com",
		"https://evil.example.com":   "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/up", nil)
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, expected, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}
