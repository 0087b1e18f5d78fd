package gueststore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-shop/meridian/internal/shared"
)

// KV is the durable key-value blob store backing guest state. Get returns
// shared.ErrNotFound when the key is absent.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// RedisKV implements KV on a Redis client. Guest blobs expire after the
// configured TTL so abandoned guest sessions age out.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKV constructs a RedisKV. A zero ttl keeps blobs forever.
func NewRedisKV(client *redis.Client, ttl time.Duration) *RedisKV {
	return &RedisKV{client: client, ttl: ttl}
}

// Get fetches the blob under key.
func (kv *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := kv.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores the blob under key.
func (kv *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return kv.client.Set(ctx, key, value, kv.ttl).Err()
}

// Delete removes the blob under key.
func (kv *RedisKV) Delete(ctx context.Context, key string) error {
	return kv.client.Del(ctx, key).Err()
}
