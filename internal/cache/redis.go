// Package cache provides the Redis-backed external search cache and the
// search rate limiter. The cache is optional: when no Redis URL is
// configured the service runs without it.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// connectTimeout bounds the startup ping so a dead Redis fails fast
// instead of hanging boot.
const connectTimeout = 5 * time.Second

// Cache wraps the Redis connection shared by the search cache and the
// rate limiter.
type Cache struct {
	client *redis.Client
}

// New connects to Redis at redisURL and verifies the connection before
// returning.
func New(ctx context.Context, redisURL string) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.ClientName = "recipex-api"
	// Modest pool: every use is a short single-command call.
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Ping reports whether Redis is reachable; the readiness probe uses it.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client exposes the underlying Redis client for tests and tooling.
// Production code should go through the Cache methods.
func (c *Cache) Client() *redis.Client {
	return c.client
}
