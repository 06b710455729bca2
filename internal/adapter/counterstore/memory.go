// Package counterstore provides rate-counter backends: an in-memory TTL map,
// a SQLite table, and Redis. All implement domain.CounterStore.
package counterstore

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value   int
	expires time.Time
}

// Memory is a process-local counter store with expiry. Entries expire
// naturally: reads past the deadline see zero and the entry is dropped.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time // for testing
}

// NewMemory creates an empty in-memory counter store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

// SetClock replaces the store's clock. Test hook.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Get(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return 0, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return 0, nil
	}
	return e.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value int, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: value, expires: m.now().Add(ttl)}
	return nil
}

func (m *Memory) RemainingTTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return -1, nil
	}
	remaining := e.expires.Sub(m.now())
	if remaining <= 0 {
		delete(m.entries, key)
		return -1, nil
	}
	return remaining, nil
}
