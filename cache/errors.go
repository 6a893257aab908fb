package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cache operations.
// Use errors.Is() to check for these specific error conditions.
var (
	// ErrNotFound is returned when a cache key doesn't exist.
	// Callers treat it as a miss, never as a failure.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when attempting to use a closed store.
	ErrClosed = errors.New("cache: store closed")
)

// ConfigError represents a configuration error during store initialization.
type ConfigError struct {
	Field   string // Configuration field that failed validation
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("cache configuration error: %s: %s", e.Field, e.Message)
}

// NewConfigError creates a new configuration error.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// OperationError represents a failed backend operation (get, set, scan, ...).
type OperationError struct {
	Op  string // Operation that failed
	Key string // Cache key or pattern involved in the operation
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("cache operation error: %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// NewOperationError creates a new operation error.
func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{Op: op, Key: key, Err: err}
}
