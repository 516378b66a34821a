package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/lllypuk/healthd/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgreSQL test configuration constants
const (
	postgresImage                   = "postgres:16-alpine"
	postgresContainerStartupTimeout = 90 * time.Second
	postgresUser                    = "healthd"
	postgresPassword                = "healthd"
	postgresDatabase                = "healthd_test"
)

var (
	sharedPostgres     *SharedPostgresContainer
	sharedPostgresOnce sync.Once
	errSharedPostgres  error
)

// SharedPostgresContainer represents a reusable PostgreSQL container for tests
type SharedPostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      int
}

// DatabaseConfig returns connection settings pointing at the container.
func (c *SharedPostgresContainer) DatabaseConfig() config.DatabaseConfig {
	cfg := config.DefaultConfig().Database
	cfg.Host = c.Host
	cfg.Port = c.Port
	cfg.User = postgresUser
	cfg.Password = postgresPassword
	cfg.Database = postgresDatabase
	cfg.SSLMode = "disable"
	return cfg
}

// GetSharedPostgresContainer returns a singleton PostgreSQL container.
// The container is started once and reused across all tests.
func GetSharedPostgresContainer(ctx context.Context) (*SharedPostgresContainer, error) {
	sharedPostgresOnce.Do(func() {
		sharedPostgres, errSharedPostgres = startPostgresContainer(ctx)
	})
	return sharedPostgres, errSharedPostgres
}

func startPostgresContainer(ctx context.Context) (*SharedPostgresContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDatabase,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(postgresContainerStartupTimeout),
			wait.ForListeningPort("5432/tcp").WithStartupTimeout(postgresContainerStartupTimeout),
		),
	}

	cont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := cont.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	port, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return nil, fmt.Errorf("invalid container port %q: %w", mapped.Port(), err)
	}

	return &SharedPostgresContainer{Container: cont, Host: host, Port: port}, nil
}

// SetupTestPostgres returns database settings for the shared container.
// The test is skipped when no container provider is available.
func SetupTestPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), postgresContainerStartupTimeout)
	defer cancel()

	cont, err := GetSharedPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("Failed to get shared PostgreSQL container: %v", err)
	}
	return cont.DatabaseConfig()
}

// CleanupSharedPostgresContainer terminates the shared container.
// Call it from TestMain after m.Run.
func CleanupSharedPostgresContainer() {
	if sharedPostgres != nil {
		terminateContainer(sharedPostgres.Container)
	}
}
