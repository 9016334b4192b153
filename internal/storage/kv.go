// Package storage persists day records, reminder settings and the family registry.
//
// The reminder core only sees the KeyValue interface; Records layers the typed
// day/settings documents on top of it as two JSON documents under fixed keys.
package storage

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/tphakala/eyedrop-checker/internal/logger"
)

// KeyValue is a string-keyed blob store.
type KeyValue interface {
	// Get returns the value for key. found is false when the key does not exist.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// MemoryStore is an in-process KeyValue.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(value)
	return nil
}

// Keys returns the stored keys, for tests and diagnostics.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.data))
}

// GetLogger returns the storage module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("storage")
}
