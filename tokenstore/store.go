// Package tokenstore persists the access/refresh token pair used by the HTTP access layer.
package tokenstore

import (
	"errors"
	"sync"
)

// Fixed key names the token pair lives under.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("tokenstore: key not found")

// Store is a small durable key-value store. Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) (string, error)
	// Set stores value under key; an empty value deletes the key.
	Set(key, value string) error
	// SetMany applies every entry of values in one write, with the same empty-value rule as Set.
	SetMany(values map[string]string) error
	Delete(keys ...string) error
}

// Lookup returns the value under key, or "" when it is missing or unreadable.
func Lookup(s Store, key string) string {
	v, err := s.Get(key)
	if err != nil {
		return ""
	}
	return v
}

// MemoryStore keeps tokens for the lifetime of the process only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value under key or ErrNotFound.
func (m *MemoryStore) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key; an empty value deletes the key.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		delete(m.values, key)
		return nil
	}
	m.values[key] = value
	return nil
}

// SetMany applies values in one step.
func (m *MemoryStore) SetMany(values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(m.values, values)
	return nil
}

// Delete removes keys; missing keys are ignored.
func (m *MemoryStore) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func apply(dst, values map[string]string) {
	for k, v := range values {
		if v == "" {
			delete(dst, k)
			continue
		}
		dst[k] = v
	}
}
