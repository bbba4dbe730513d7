// internal/store/memory.go
//
// In-memory Backend.
// Used in development and tests, or when durability is not required
// (STORE_BACKEND=memory).
//
// Characteristics:
//   - Values keyed by scoped best-score key in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sync"
)

// memory is an in-memory map-based Backend.
type memory struct {
	mu     sync.RWMutex
	scores map[string]int
}

// NewMemoryStore constructs an empty in-memory Backend.
func NewMemoryStore() Backend {
	return &memory{scores: make(map[string]int)}
}

func (m *memory) Load(ctx context.Context, key string) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.scores[key]
	return n, ok, nil
}

// SaveIfLower compares and writes under the write lock.
func (m *memory) SaveIfLower(ctx context.Context, key string, attempts int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.scores[key]; ok && cur <= attempts {
		return false, nil
	}
	m.scores[key] = attempts
	return true, nil
}

func (m *memory) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scores, key)
	return nil
}

func (m *memory) Close() error { return nil }
