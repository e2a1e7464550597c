package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/hryang/cachegate/pkg/datastore"
	"go.uber.org/zap"
)

// DefaultCapacity is the maximum number of keys when none is configured.
const DefaultCapacity = 10

// Entry is a stored key/value pair.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Stats reports the store occupancy.
type Stats struct {
	Keys     int64 `json:"keys"`
	Capacity int   `json:"capacity"`
}

// Gateway admits writes into a fixed-capacity store and passes reads and
// deletes through. It keeps no state of its own.
//
// The admission check (count, then exists, then set) is not atomic. Concurrent
// writers can overshoot the capacity, and two writers of the same new key can
// both succeed with the last write winning.
type Gateway struct {
	store    datastore.Store
	capacity int
	logger   *zap.Logger
}

func New(store datastore.Store, capacity int, logger *zap.Logger) (*Gateway, error) {
	if store == nil {
		return nil, fmt.Errorf("gateway requires a store")
	}
	if capacity < 1 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		store:    store,
		capacity: capacity,
		logger:   logger,
	}, nil
}

func (g *Gateway) Capacity() int {
	return g.capacity
}

// Put stores a new entry. It fails with ErrCapacityExceeded when the store
// already holds capacity keys and with ErrDuplicateKey when the key exists.
// An existing value is never overwritten.
func (g *Gateway) Put(ctx context.Context, key string, value string) (Entry, error) {
	if key == "" {
		return Entry{}, fmt.Errorf("%w: key cannot be empty", ErrValidation)
	}

	size, err := g.store.Count(ctx)
	if err != nil {
		return Entry{}, g.backendError("count", key, err)
	}
	if size >= int64(g.capacity) {
		g.logger.Info("reject put: capacity exceeded",
			zap.String("key", key), zap.Int64("size", size), zap.Int("capacity", g.capacity))
		return Entry{}, fmt.Errorf("%w: cannot store more than %d keys", ErrCapacityExceeded, g.capacity)
	}

	exists, err := g.store.Exists(ctx, key)
	if err != nil {
		return Entry{}, g.backendError("exists", key, err)
	}
	if exists {
		g.logger.Info("reject put: duplicate key", zap.String("key", key))
		return Entry{}, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}

	if err := g.store.Set(ctx, key, value); err != nil {
		return Entry{}, g.backendError("set", key, err)
	}
	g.logger.Debug("stored entry", zap.String("key", key))
	return Entry{Key: key, Value: value}, nil
}

// Get returns the stored value verbatim.
func (g *Gateway) Get(ctx context.Context, key string) (string, error) {
	value, err := g.store.Get(ctx, key)
	if errors.Is(err, datastore.ErrNotFound) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return "", g.backendError("get", key, err)
	}
	return value, nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (g *Gateway) Delete(ctx context.Context, key string) (string, error) {
	if err := g.store.Delete(ctx, key); err != nil {
		return "", g.backendError("delete", key, err)
	}
	return key, nil
}

func (g *Gateway) Stats(ctx context.Context) (Stats, error) {
	size, err := g.store.Count(ctx)
	if err != nil {
		return Stats{}, g.backendError("count", "", err)
	}
	return Stats{Keys: size, Capacity: g.capacity}, nil
}

func (g *Gateway) backendError(op string, key string, err error) error {
	g.logger.Error("datastore call failed",
		zap.String("op", op), zap.String("key", key), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, op, err)
}
