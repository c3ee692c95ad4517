package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// opTimeout bounds each Redis round trip; a slow cache must not stall requests.
const opTimeout = 500 * time.Millisecond

// Redis is a JSON-encoded TTL cache shared between replicas.
// Redis errors degrade to cache misses.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedis creates a cache whose keys live under prefix.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *Redis[T]) key(k string) string {
	return c.prefix + ":" + k
}

func (c *Redis[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		c.logger.Warn("redis cache get failed", zap.String("prefix", c.prefix), zap.Error(err))
		return zero, false
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		c.logger.Warn("redis cache entry corrupt", zap.String("prefix", c.prefix), zap.Error(err))
		return zero, false
	}
	return value, true
}

func (c *Redis[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL caps ttl at the cache's TTL; a non-positive ttl stores nothing.
func (c *Redis[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if ttl > c.ttl {
		ttl = c.ttl
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("redis cache encode failed", zap.String("prefix", c.prefix), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		c.logger.Warn("redis cache set failed", zap.String("prefix", c.prefix), zap.Error(err))
	}
}

func (c *Redis[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.Warn("redis cache delete failed", zap.String("prefix", c.prefix), zap.Error(err))
	}
}
