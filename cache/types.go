// Package cache holds the response cache used by the HTTP access layer.
//
// Entries are keyed by the request's de-duplication key
// ("<METHOD>:<resolved url>:<serialized body>"). Stores never evict on their own:
// staleness is judged by the reader against the TTL it asked for, and entries only
// disappear through DeleteMatching.
package cache

import (
	"context"
	"time"
)

// Entry is a cached successful response.
type Entry struct {
	Payload     []byte    `cbor:"1,keyasint"`
	ContentType string    `cbor:"2,keyasint,omitempty"`
	StatusCode  int       `cbor:"3,keyasint"`
	StoredAt    time.Time `cbor:"4,keyasint"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e *Entry) Fresh(ttl time.Duration, now time.Time) bool {
	return e != nil && now.Sub(e.StoredAt) < ttl
}

// Store is a response cache backend. Implementations must be safe for concurrent use.
//
// Example usage:
//
//	entry, err := store.Get(ctx, key)
//	if err == nil && entry.Fresh(ttl, time.Now()) {
//	    return entry.Payload
//	}
//	// ... perform the request ...
//	_ = store.Set(ctx, key, &cache.Entry{Payload: body, StoredAt: time.Now()})
//
//	// Invalidate every cached list and detail of the video resource
//	_, _ = store.DeleteMatching(ctx, "videos")
type Store interface {
	// Get returns the entry stored under key regardless of its age.
	// Returns ErrNotFound if the key has never been set or was deleted.
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores entry under key, overwriting any existing value.
	Set(ctx context.Context, key string, entry *Entry) error

	// DeleteMatching removes every key containing pattern as a substring and
	// returns how many were removed. An empty pattern clears the store.
	DeleteMatching(ctx context.Context, pattern string) (int, error)

	// Stats returns backend statistics for diagnostics.
	Stats() map[string]any

	// Close releases resources. The store must not be used afterwards.
	Close() error
}
