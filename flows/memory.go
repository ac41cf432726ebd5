package flows

import (
	"context"
	"sync"
)

// MemoryBackend keeps progress records in process memory. It is the
// degraded, in-memory-only mode: records vanish with the process. It is
// also the fallback the module installs when a configured backend cannot
// connect.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string]string
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]string),
	}
}

// Connect implements ProgressBackend. Memory needs no setup.
func (b *MemoryBackend) Connect(ctx context.Context) error {
	return nil
}

// Close implements ProgressBackend.
func (b *MemoryBackend) Close(ctx context.Context) error {
	return nil
}

// Get returns the record stored under key.
func (b *MemoryBackend) Get(ctx context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, ok := b.records[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

// Set stores value under key.
func (b *MemoryBackend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[key] = value
	return nil
}

// Len returns the number of stored records.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.records)
}
