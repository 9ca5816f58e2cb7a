// Package memory provides an in-memory implementation of storage.Storage.
//
// Nothing survives a restart. It backs the "memory" storage driver and
// the unit tests of packages that need a Storage.
package memory

import (
	"context"
	"sync"

	"github.com/aanand-mishra/student-roster/internal/storage"
)

var _ storage.Storage = (*Memory)(nil)

// Memory is a map guarded by a RWMutex. Values are copied on the way in
// and on the way out so callers cannot alias stored bytes.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte

	// FailWrites makes every Set/SetMany return this error. Tests use it
	// to exercise persistence failures.
	FailWrites error
}

// New returns an empty store, ready for use.
func New() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	return m.SetMany(ctx, map[string][]byte{key: value})
}

func (m *Memory) SetMany(_ context.Context, entries map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites != nil {
		return m.FailWrites
	}
	for key, value := range entries {
		m.entries[key] = append([]byte(nil), value...)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
