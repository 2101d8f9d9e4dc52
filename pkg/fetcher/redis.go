package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "briefings:fetch:"

// RedisCache shares fetched bodies between hosts. Keys are written without
// a TTL to match the never-expire contract of DiskCache.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", opts.Addr, err)
	}

	log.Printf("RedisCache: connected to %s", opts.Addr)
	return &RedisCache{rdb: rdb}, nil
}

// Get returns the cached body for url.
func (c *RedisCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := c.rdb.Get(ctx, redisKeyPrefix+CacheKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry for %s: %w", url, err)
	}
	return body, true, nil
}

// Set stores body for url. SET replaces the whole value atomically.
func (c *RedisCache) Set(ctx context.Context, url string, body []byte) error {
	if err := c.rdb.Set(ctx, redisKeyPrefix+CacheKey(url), body, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry for %s: %w", url, err)
	}
	return nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
