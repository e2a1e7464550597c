package datastore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("datastore: key not found")

// Store is the key-value backend behind the cache gateway.
// Implementations must be safe for concurrent use.
type Store interface {
	// Count returns the number of distinct keys currently stored.
	Count(ctx context.Context) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Set is an unconditional upsert.
	Set(ctx context.Context, key string, value string) error
	// Delete succeeds whether or not the key exists.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
