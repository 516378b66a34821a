package health

import (
	"errors"
	"fmt"
)

// Sentinel errors raised inside the probes.
var (
	ErrDatastoreNotConfigured = errors.New("health: datastore not configured")
	ErrStoresNotConfigured    = errors.New("health: cache stores not configured")
	ErrProbePanic             = errors.New("health: probe panicked")
)

// ProbeError is a fault raised while talking to a dependency.
type ProbeError struct {
	Dependency string
	Op         string
	Err        error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Dependency, e.Op, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Kind names the underlying fault, e.g. "*pgconn.ConnectError".
func (e *ProbeError) Kind() string {
	if e.Err == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", e.Err)
}

// recoverProbe converts a panic raised by a client library into a ProbeError.
// It must be deferred directly; op points at the operation in flight.
func recoverProbe(dependency string, op *string, perr **ProbeError) {
	if r := recover(); r != nil {
		err, ok := r.(error)
		if !ok {
			err = fmt.Errorf("%w: %v", ErrProbePanic, r)
		}
		*perr = &ProbeError{Dependency: dependency, Op: *op, Err: err}
	}
}
