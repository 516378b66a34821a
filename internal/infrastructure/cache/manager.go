// Package cache provides the named cache stores exercised by the cache probe.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lllypuk/healthd/internal/health"
)

// ErrStoreNotFound is returned when a store name is not registered.
var ErrStoreNotFound = errors.New("cache store not found")

// Store is a cache backend managed by Manager.
type Store interface {
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (any, error)
	Forget(ctx context.Context, key string) error
}

// Manager holds the configured cache stores by name.
type Manager struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		stores: make(map[string]Store),
	}
}

// Register adds or replaces the store under name.
func (m *Manager) Register(name string, store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stores[name] = store
}

// Store returns the store registered under name. Names are matched exactly.
func (m *Manager) Store(name string) (health.Store, error) {
	m.mu.RLock()
	s, ok := m.stores[name]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStoreNotFound, name)
	}
	return s, nil
}

// Names lists the registered store names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.stores))
	for name := range m.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	_ health.StoreResolver = (*Manager)(nil)
	_ Store                = (*RedisStore)(nil)
)
