package cartsnapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cutin/internal/cart"
	"github.com/redis/go-redis/v9"
)

var (
	_ cart.Storage = (*RedisStorage)(nil)
	_ cart.Deleter = (*RedisStorage)(nil)
)

// RedisStorage keeps cart snapshots as plain string values, one key per cart.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis returns a cart.Storage backed by Redis. A zero ttl keeps snapshots forever.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, ttl: ttl}
}

func (r *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStorage) Save(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes a snapshot. Missing keys are not an error.
func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
