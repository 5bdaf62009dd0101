package reference

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache is the hot layer in front of the durable summary store.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache stores summaries as plain string keys.
type RedisCache struct {
	rdb    goredis.Cmdable
	prefix string
}

func NewRedisCache(rdb goredis.Cmdable, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "contentgen:reference:"
	}
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.prefix+key, value, ttl).Err()
}
