package cart

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBlob keeps the cart under a single Redis string key.
type RedisBlob struct {
	client redis.UniversalClient
	key    string
}

// NewRedisBlob creates a Redis-backed blob. An empty key falls back to
// DefaultKey.
func NewRedisBlob(client redis.UniversalClient, key string) *RedisBlob {
	if key == "" {
		key = DefaultKey
	}
	return &RedisBlob{client: client, key: key}
}

// Load returns the stored cart, or nil when the key is unset.
func (b *RedisBlob) Load(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// Save overwrites the key with data. The key never expires.
func (b *RedisBlob) Save(ctx context.Context, data []byte) error {
	return b.client.Set(ctx, b.key, data, 0).Err()
}

// Delete removes the key.
func (b *RedisBlob) Delete(ctx context.Context) error {
	return b.client.Del(ctx, b.key).Err()
}
