//go:build integration

package app_test

import (
	"bytes"
	"net/http"
	"os"
	"testing"

	"github.com/lllypuk/healthd/internal/app"
	"github.com/lllypuk/healthd/internal/config"
	"github.com/lllypuk/healthd/internal/health"
	"github.com/lllypuk/healthd/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testutil.CleanupSharedRedisContainer()
	testutil.CleanupSharedPostgresContainer()
	os.Exit(code)
}

func TestContainer_Integration_Healthy(t *testing.T) {
	dbCfg := testutil.SetupTestPostgres(t)
	redisClient, prefix := testutil.SetupTestRedisWithPrefix(t)
	ctx := testutil.NewTestContext(t)

	cfg := config.DefaultConfig()
	cfg.Database = dbCfg
	cfg.Redis.Addr = redisClient.Options().Addr
	cfg.Cache.Prefix = prefix

	var logs bytes.Buffer
	c, err := app.NewContainer(ctx, cfg, app.WithLogger(newTestLogger(&logs)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	report, code := c.Checker.Evaluate(ctx)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StatusOK, report.Status)
	assert.Equal(t, health.Checks{Database: true, Redis: true}, report.Checks)
	assert.NotContains(t, logs.String(), `"level":"ERROR"`)

	stored, err := redisClient.Get(ctx, prefix+health.SentinelKey).Result()
	require.NoError(t, err)
	assert.Equal(t, "true", stored)
}
