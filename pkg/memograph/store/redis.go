package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisResultStore is a Redis-backed result store for multi-process
// deployments. Content addressing makes SETNX the natural write
// primitive: the first writer wins and concurrent identical writes are
// harmless.
type RedisResultStore struct {
	client *redis.Client
	prefix string
}

// NewRedisResultStore creates a result store on top of an existing
// Redis client. The prefix namespaces keys so one Redis instance can
// back several caches; empty means no prefix.
func NewRedisResultStore(client *redis.Client, prefix string) *RedisResultStore {
	return &RedisResultStore{client: client, prefix: prefix}
}

func (r *RedisResultStore) key(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + ":" + key
}

// Put implements ResultStore. SetNX leaves existing entries untouched.
func (r *RedisResultStore) Put(ctx context.Context, key string, blob []byte) error {
	if err := r.client.SetNX(ctx, r.key(key), blob, 0).Err(); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// Get implements ResultStore.
func (r *RedisResultStore) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return blob, nil
}

// Contains implements ResultStore.
func (r *RedisResultStore) Contains(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Close implements ResultStore.
func (r *RedisResultStore) Close() error {
	return r.client.Close()
}
