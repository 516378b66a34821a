// Package config provides configuration loading and validation for the application.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default configuration constants.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultDatabaseMaxConns         = 10
	DefaultDatabaseConnectTimeout   = 5 * time.Second
	DefaultDatabaseStatementTimeout = 5 * time.Second
	DefaultDatabaseConnMaxLifetime  = 30 * time.Minute

	DefaultRedisPoolSize     = 10
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second

	DefaultProbeTimeout = 5 * time.Second
)

// Environment names.
const (
	EnvLocal      = "local"
	EnvTesting    = "testing"
	EnvProduction = "production"
)

// Config holds the complete application configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Health   HealthConfig   `yaml:"health"`
	Log      LogConfig      `yaml:"log"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	// Name is the application name used in logs and metrics.
	Name string `yaml:"name" env:"APP_NAME"`

	// Env is the deployment environment: local, testing, staging, production.
	Env string `yaml:"env" env:"APP_ENV"`
}

// ServerConfig holds HTTP server configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`

	// CORSOrigins is a comma-separated list of origins allowed to read the
	// health endpoints from a browser. Empty allows every origin.
	CORSOrigins string `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type DatabaseConfig struct {
	// Connection is the logical connection name reported in diagnostics.
	Connection string `yaml:"connection" env:"DB_CONNECTION"`

	// URL takes precedence over the discrete fields when set.
	URL string `yaml:"url" env:"DATABASE_URL"`

	Host             string        `yaml:"host" env:"DB_HOST"`
	Port             int           `yaml:"port" env:"DB_PORT"`
	Database         string        `yaml:"database" env:"DB_DATABASE"`
	User             string        `yaml:"user" env:"DB_USERNAME"`
	Password         string        `yaml:"password" env:"DB_PASSWORD"`
	SSLMode          string        `yaml:"sslmode" env:"DB_SSLMODE"`
	MaxConns         int32         `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns         int32         `yaml:"min_conns" env:"DB_MIN_CONNS"`
	ConnMaxLifetime  time.Duration `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT"`
	StatementTimeout time.Duration `yaml:"statement_timeout" env:"DB_STATEMENT_TIMEOUT"`
}

// RedisConfig holds Redis connection configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type RedisConfig struct {
	Addr         string        `yaml:"addr" env:"REDIS_ADDR"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB           int           `yaml:"db" env:"REDIS_DB"`
	PoolSize     int           `yaml:"pool_size" env:"REDIS_POOL_SIZE"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"REDIS_WRITE_TIMEOUT"`
}

// CacheConfig holds cache store configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type CacheConfig struct {
	Prefix string `yaml:"prefix" env:"CACHE_PREFIX"`
}

// HealthConfig holds health-check engine configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type HealthConfig struct {
	// CacheStore names the cache store exercised by the cache probe.
	CacheStore string `yaml:"cache_store" env:"HEALTH_CACHE_STORE"`

	// ProbeTimeout bounds each probe. Zero leaves it to the client timeouts.
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"HEALTH_PROBE_TIMEOUT"`
}

// LogConfig holds logging configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"LOG_FORMAT"` // json | text
}

// Configuration errors.
var (
	ErrConfigNotFound       = errors.New("configuration file not found")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrInvalidDuration      = errors.New("invalid duration format")
	ErrInvalidLogLevel      = errors.New("invalid log level: must be debug, info, warn, or error")
	ErrInvalidLogFormat     = errors.New("invalid log format: must be json or text")
	ErrInvalidCacheStore    = errors.New("invalid cache store: the cache probe needs a remote store (redis)")
	ErrWriteTimeoutTooShort = errors.New("server.write_timeout must exceed the time of both probes")
	ErrInvalidSSLMode       = errors.New("invalid database sslmode")
	ErrNegativeProbeTimeout = errors.New("health.probe_timeout must not be negative")
)

// StoreRedis names the Redis cache store, the only store the cache probe can target.
const StoreRedis = "redis"

// ProbesPerReport is the number of sequential probes behind one health report.
const ProbesPerReport = 2

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "healthd",
			Env:  EnvProduction,
		},
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Database: DatabaseConfig{
			Connection:       "pgsql",
			Host:             "localhost",
			Port:             5432,
			Database:         "healthd",
			User:             "healthd",
			SSLMode:          "disable",
			MaxConns:         DefaultDatabaseMaxConns,
			ConnMaxLifetime:  DefaultDatabaseConnMaxLifetime,
			ConnectTimeout:   DefaultDatabaseConnectTimeout,
			StatementTimeout: DefaultDatabaseStatementTimeout,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     DefaultRedisPoolSize,
			DialTimeout:  DefaultRedisDialTimeout,
			ReadTimeout:  DefaultRedisReadTimeout,
			WriteTimeout: DefaultRedisWriteTimeout,
		},
		Cache: CacheConfig{
			Prefix: "healthd_cache:",
		},
		Health: HealthConfig{
			CacheStore:   StoreRedis,
			ProbeTimeout: DefaultProbeTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []error

	errs = c.validateServer(errs)
	errs = c.validateDatabase(errs)
	errs = c.validateRedis(errs)
	errs = c.validateHealth(errs)
	errs = c.validateLog(errs)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
	}

	return nil
}

// validateServer validates server configuration.
func (c *Config) validateServer(errs []error) []error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server.write_timeout must be positive"))
	}
	// A degraded report waits for every probe to time out before it is written.
	if budget := ProbesPerReport * c.Health.ProbeTimeout; budget > 0 && c.Server.WriteTimeout > 0 &&
		c.Server.WriteTimeout <= budget {
		errs = append(errs, fmt.Errorf("%w: write_timeout %s, probe_timeout %s x %d",
			ErrWriteTimeoutTooShort, c.Server.WriteTimeout, c.Health.ProbeTimeout, ProbesPerReport))
	}
	return errs
}

// validateDatabase validates database configuration.
func (c *Config) validateDatabase(errs []error) []error {
	if c.Database.URL == "" {
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required when database.url is empty"))
		}
		if c.Database.Database == "" {
			errs = append(errs, errors.New("database.database is required when database.url is empty"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Errorf("database.port must be between 1 and 65535, got %d", c.Database.Port))
		}
	}
	validSSLModes := map[string]bool{
		"": true, "disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[c.Database.SSLMode] {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidSSLMode, c.Database.SSLMode))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, errors.New("database.max_conns must be positive"))
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("database.min_conns must be between 0 and database.max_conns"))
	}
	if c.Database.ConnectTimeout < 0 || c.Database.StatementTimeout < 0 {
		errs = append(errs, errors.New("database timeouts must not be negative"))
	}
	return errs
}

// validateRedis validates Redis configuration.
func (c *Config) validateRedis(errs []error) []error {
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	} else if _, _, err := net.SplitHostPort(c.Redis.Addr); err != nil {
		errs = append(errs, fmt.Errorf("redis.addr must be host:port: %w", err))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, errors.New("redis.db must not be negative"))
	}
	return errs
}

// validateHealth validates health-check configuration.
func (c *Config) validateHealth(errs []error) []error {
	if c.Health.CacheStore != StoreRedis {
		errs = append(errs, fmt.Errorf("health.cache_store %q: %w", c.Health.CacheStore, ErrInvalidCacheStore))
	}
	if c.Health.ProbeTimeout < 0 {
		errs = append(errs, ErrNegativeProbeTimeout)
	}
	return errs
}

// validateLog validates logging configuration.
func (c *Config) validateLog(errs []error) []error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ErrInvalidLogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Log.Format] {
		errs = append(errs, ErrInvalidLogFormat)
	}
	return errs
}

// Load loads configuration from the default config file and environment variables.
func Load() (*Config, error) {
	return LoadFromPath("")
}

// LoadFromPath loads configuration from a specific file path.
// If path is empty, it tries to find the config file in standard locations.
func LoadFromPath(path string) (*Config, error) {
	loader := NewLoader()
	return loader.Load(path)
}

// Loader handles configuration loading from files and environment variables.
type Loader struct {
	configPaths []string
	envFiles    []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		configPaths: []string{
			"configs/config.yaml",
			"config.yaml",
			"/etc/healthd/config.yaml",
		},
		envFiles: []string{".env"},
	}
}

// WithConfigPaths sets custom config paths to search.
func (l *Loader) WithConfigPaths(paths []string) *Loader {
	l.configPaths = paths
	return l
}

// WithEnvFiles sets the dotenv files loaded before reading the environment.
// Variables already present in the environment are never overwritten.
func (l *Loader) WithEnvFiles(files []string) *Loader {
	l.envFiles = files
	return l
}

// Load loads configuration from file and environment variables.
func (l *Loader) Load(path string) (*Config, error) {
	// Start with default config
	cfg := DefaultConfig()

	// Missing dotenv files are fine, the environment may be set by the orchestrator
	l.loadEnvFiles()

	// Determine config file path
	configPath := path
	if configPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
		} else {
			for _, p := range l.configPaths {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}
	}

	// Load from file if found
	if configPath != "" {
		if err := l.loadFromFile(cfg, configPath); err != nil {
			// Only return error if path was explicitly specified
			if path != "" || os.Getenv("CONFIG_PATH") != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		}
	}

	// Override with environment variables
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFiles loads the configured dotenv files that exist.
func (l *Loader) loadEnvFiles() {
	for _, f := range l.envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

// loadFromFile loads configuration from a YAML file.
func (l *Loader) loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.loadEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// loadEnvToStruct recursively loads environment variables into a struct.
func (l *Loader) loadEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.loadEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := l.setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setFieldFromEnv sets a struct field value from an environment variable string.
//
//nolint:exhaustive // We only support a subset of reflect.Kind for config values
func (l *Loader) setFieldFromEnv(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeFor[time.Duration]() {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidDuration, value)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, field.Type().Bits())
			if err != nil {
				return fmt.Errorf("invalid integer value: %s", value)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Normalize lower-cases the enumerated settings so that values such as
// HEALTH_CACHE_STORE=Redis match the names used at runtime.
func (c *Config) Normalize() {
	c.App.Env = normalizeName(c.App.Env)
	c.Health.CacheStore = normalizeName(c.Health.CacheStore)
	c.Log.Level = normalizeName(c.Log.Level)
	c.Log.Format = normalizeName(c.Log.Format)
	c.Database.SSLMode = normalizeName(c.Database.SSLMode)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CORSOriginList splits Server.CORSOrigins into trimmed, non-empty origins.
func (c ServerConfig) CORSOriginList() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// IsDevelopment returns true for local environments or debug logging.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Env, EnvLocal) || strings.ToLower(c.Log.Level) == "debug"
}

// IsProduction returns true when running in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, EnvProduction)
}
