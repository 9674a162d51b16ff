// Package storage defines the string key/value persistence used for the
// client session.
package storage

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrNotFound = errors.New("not found")
	ErrClosed   = errors.New("storage closed")
)

// KV is a durable string key/value store. Implementations must be safe for
// concurrent use.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Ping checks if the storage is alive
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}
