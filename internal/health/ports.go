package health

import (
	"context"
	"time"
)

// Datastore is the relational datastore under test.
type Datastore interface {
	// Exec runs a statement and discards its result.
	Exec(ctx context.Context, query string) error
}

// DatastoreFunc adapts a function to the Datastore interface.
type DatastoreFunc func(ctx context.Context, query string) error

// Exec implements Datastore.
func (f DatastoreFunc) Exec(ctx context.Context, query string) error {
	return f(ctx, query)
}

// Store is a cache backend addressed by the cache probe.
type Store interface {
	// Put writes value under key for ttl.
	Put(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get reads key back. A missing key yields (nil, nil).
	Get(ctx context.Context, key string) (any, error)
}

// StoreResolver looks up a cache store by name.
type StoreResolver interface {
	Store(name string) (Store, error)
}

// Severity is the level of a diagnostic record.
type Severity string

// Diagnostic severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Reporter receives diagnostic records emitted on probe failures.
// Implementations must not block for long; Record is fire-and-forget.
type Reporter interface {
	Record(ctx context.Context, severity Severity, message string, fields map[string]any)
}

// Observer is notified about every probe run.
type Observer interface {
	ObserveProbe(dependency string, healthy bool, duration time.Duration)
}

type discardReporter struct{}

func (discardReporter) Record(context.Context, Severity, string, map[string]any) {}
