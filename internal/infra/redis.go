package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis when REDIS_ADDR is configured. It returns
// (nil, nil) when Redis is disabled so callers can treat it as optional.
func NewRedisClient(ctx context.Context, cfg *Config) (*goredis.Client, error) {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        strings.TrimSpace(cfg.RedisAddr),
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
