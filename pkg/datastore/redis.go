package datastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the entries in a single redis database. DBSIZE is used as
// the key count, so the database should not be shared with other data.
type RedisStore struct {
	Client *redis.Client
}

// NewRedisStore parses the connection url and creates the client. No
// connection is made until the first command; call Ping to check reachability.
func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{Client: redis.NewClient(opts)}, nil
}

func (ds *RedisStore) Count(ctx context.Context) (int64, error) {
	return ds.Client.DBSize(ctx).Result()
}

func (ds *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := ds.Client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (ds *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := ds.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (ds *RedisStore) Set(ctx context.Context, key string, value string) error {
	return ds.Client.Set(ctx, key, value, 0).Err()
}

func (ds *RedisStore) Delete(ctx context.Context, key string) error {
	return ds.Client.Del(ctx, key).Err()
}

func (ds *RedisStore) Ping(ctx context.Context) error {
	return ds.Client.Ping(ctx).Err()
}

func (ds *RedisStore) Close() error {
	return ds.Client.Close()
}
