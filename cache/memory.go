package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// MemoryStore is the default process-wide store: an unbounded map guarded by a RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	closed  atomic.Bool

	hits    atomic.Int64
	misses  atomic.Int64
	deletes atomic.Int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Get returns a copy of the entry so callers cannot mutate shared state.
func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		m.misses.Add(1)
		return nil, ErrNotFound
	}
	m.hits.Add(1)
	cp := *e
	return &cp, nil
}

// Set stores a copy of entry under key.
func (m *MemoryStore) Set(_ context.Context, key string, entry *Entry) error {
	if m.closed.Load() {
		return ErrClosed
	}
	cp := *entry

	m.mu.Lock()
	m.entries[key] = &cp
	m.mu.Unlock()
	return nil
}

// DeleteMatching removes every key containing pattern; an empty pattern clears the map.
func (m *MemoryStore) DeleteMatching(_ context.Context, pattern string) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if pattern == "" {
		n := len(m.entries)
		m.entries = make(map[string]*Entry)
		m.deletes.Add(int64(n))
		return n, nil
	}

	n := 0
	for key := range m.entries {
		if strings.Contains(key, pattern) {
			delete(m.entries, key)
			n++
		}
	}
	m.deletes.Add(int64(n))
	return n, nil
}

// Len returns the number of stored entries, stale ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns entry and lookup counters.
func (m *MemoryStore) Stats() map[string]any {
	return map[string]any{
		"backend": "memory",
		"entries": m.Len(),
		"hits":    m.hits.Load(),
		"misses":  m.misses.Load(),
		"deletes": m.deletes.Load(),
	}
}

// Close marks the store closed and drops its entries. Close is idempotent.
func (m *MemoryStore) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}
