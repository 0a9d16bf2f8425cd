package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by GetJSON when the key is absent or no cache is configured.
var ErrMiss = errors.New("cache miss")

// GetJSON loads key into dst.
func GetJSON(ctx context.Context, key string, dst interface{}) error {
	if client == nil {
		return ErrMiss
	}
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// SetJSON stores v under key for ttl. Without a client it is a no-op.
func SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, ttl).Err()
}

// Aside serves dst from cache, or runs load and fills the cache from dst.
// Cache errors degrade to calling load; load errors are returned and nothing is stored.
func Aside(ctx context.Context, key string, dst interface{}, ttl time.Duration, load func() error) error {
	if err := GetJSON(ctx, key, dst); err == nil {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	_ = SetJSON(ctx, key, dst, ttl)
	return nil
}
