package health

import (
	"context"
	"time"
)

// Probe constants.
const (
	DatabaseProbeQuery    = "SELECT 1"
	SentinelKey           = "health_check"
	SentinelTTL           = 10 * time.Second
	DefaultConnectionName = "default"
	DefaultCacheStore     = "redis"
)

// Diagnostic messages.
const (
	MessageDatabaseFailed          = "Health check: Database connection failed"
	MessageCacheFailed             = "Health check: Redis connection failed"
	MessageCacheVerificationFailed = "Health check: Redis write-read verification failed"
)

// sentinelValue is written under SentinelKey and must be read back unchanged.
const sentinelValue = true

// Checker probes the datastore and the cache store and aggregates the results.
// It holds no per-request state and is safe for concurrent use.
type Checker struct {
	datastore    Datastore
	stores       StoreResolver
	reporter     Reporter
	observer     Observer
	connection   string
	cacheStore   string
	probeTimeout time.Duration
	now          func() time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithReporter sets the sink for diagnostic records.
func WithReporter(reporter Reporter) Option {
	return func(c *Checker) {
		if reporter != nil {
			c.reporter = reporter
		}
	}
}

// WithObserver sets the probe observer.
func WithObserver(observer Observer) Option {
	return func(c *Checker) {
		c.observer = observer
	}
}

// WithConnectionName sets the datastore connection name reported in diagnostics.
func WithConnectionName(name string) Option {
	return func(c *Checker) {
		if name != "" {
			c.connection = name
		}
	}
}

// WithCacheStore sets the name of the cache store under test.
func WithCacheStore(name string) Option {
	return func(c *Checker) {
		if name != "" {
			c.cacheStore = name
		}
	}
}

// WithProbeTimeout bounds every probe with a deadline. Zero disables it.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		c.probeTimeout = timeout
	}
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) {
		if now != nil {
			c.now = now
		}
	}
}

// NewChecker creates a health checker for the given datastore and cache stores.
func NewChecker(datastore Datastore, stores StoreResolver, opts ...Option) *Checker {
	c := &Checker{
		datastore:  datastore,
		stores:     stores,
		reporter:   discardReporter{},
		connection: DefaultConnectionName,
		cacheStore: DefaultCacheStore,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ConnectionName returns the datastore connection name.
func (c *Checker) ConnectionName() string {
	return c.connection
}

// CacheStore returns the name of the cache store under test.
func (c *Checker) CacheStore() string {
	return c.cacheStore
}

// Evaluate runs both probes in order and builds the report and its HTTP status code.
// Both probes always run.
func (c *Checker) Evaluate(ctx context.Context) (Report, int) {
	database := c.CheckDatabase(ctx)
	redis := c.CheckCache(ctx)

	report := NewReport(Checks{Database: database, Redis: redis}, c.now())
	return report, report.HTTPStatus()
}

// CheckDatabase runs a trivial query against the datastore.
func (c *Checker) CheckDatabase(ctx context.Context) bool {
	start := time.Now()

	perr := c.probeDatabase(ctx)
	if perr != nil {
		c.record(ctx, SeverityError, MessageDatabaseFailed, map[string]any{
			"exception":  perr.Kind(),
			"message":    perr.Err.Error(),
			"connection": c.connection,
		})
	}

	c.observe(DependencyDatabase, perr == nil, time.Since(start))
	return perr == nil
}

func (c *Checker) probeDatabase(ctx context.Context) (perr *ProbeError) {
	op := "exec"
	defer recoverProbe(DependencyDatabase, &op, &perr)

	if c.datastore == nil {
		return &ProbeError{Dependency: DependencyDatabase, Op: op, Err: ErrDatastoreNotConfigured}
	}

	ctx, cancel := c.probeContext(ctx)
	defer cancel()

	if err := c.datastore.Exec(ctx, DatabaseProbeQuery); err != nil {
		return &ProbeError{Dependency: DependencyDatabase, Op: op, Err: err}
	}
	return nil
}

// CheckCache writes the sentinel key to the cache store and reads it back.
// Only the boolean true counts as a successful read-back.
func (c *Checker) CheckCache(ctx context.Context) bool {
	start := time.Now()
	healthy := false

	retrieved, perr := c.probeCache(ctx)
	switch {
	case perr != nil:
		c.record(ctx, SeverityError, MessageCacheFailed, map[string]any{
			"exception": perr.Kind(),
			"message":   perr.Err.Error(),
			"store":     c.cacheStore,
		})
	case !isSentinel(retrieved):
		c.record(ctx, SeverityWarning, MessageCacheVerificationFailed, map[string]any{
			"store":     c.cacheStore,
			"written":   sentinelValue,
			"retrieved": retrieved,
		})
	default:
		healthy = true
	}

	c.observe(DependencyRedis, healthy, time.Since(start))
	return healthy
}

func (c *Checker) probeCache(ctx context.Context) (retrieved any, perr *ProbeError) {
	op := "resolve"
	defer recoverProbe(DependencyRedis, &op, &perr)

	if c.stores == nil {
		return nil, &ProbeError{Dependency: DependencyRedis, Op: op, Err: ErrStoresNotConfigured}
	}

	store, err := c.stores.Store(c.cacheStore)
	if err != nil {
		return nil, &ProbeError{Dependency: DependencyRedis, Op: op, Err: err}
	}

	ctx, cancel := c.probeContext(ctx)
	defer cancel()

	op = "put"
	if err := store.Put(ctx, SentinelKey, sentinelValue, SentinelTTL); err != nil {
		return nil, &ProbeError{Dependency: DependencyRedis, Op: op, Err: err}
	}

	op = "get"
	retrieved, err = store.Get(ctx, SentinelKey)
	if err != nil {
		return nil, &ProbeError{Dependency: DependencyRedis, Op: op, Err: err}
	}
	return retrieved, nil
}

func isSentinel(value any) bool {
	b, ok := value.(bool)
	return ok && b == sentinelValue
}

func (c *Checker) probeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.probeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.probeTimeout)
}

// record forwards a diagnostic record, swallowing any panic from the sink.
func (c *Checker) record(ctx context.Context, severity Severity, message string, fields map[string]any) {
	defer func() { _ = recover() }()
	c.reporter.Record(ctx, severity, message, fields)
}

// observe forwards a probe outcome, swallowing any panic from the observer.
func (c *Checker) observe(dependency string, healthy bool, duration time.Duration) {
	if c.observer == nil {
		return
	}
	defer func() { _ = recover() }()
	c.observer.ObserveProbe(dependency, healthy, duration)
}
