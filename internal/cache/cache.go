// Package cache implements the short-TTL JSON cache fronting the
// read-side store lookups named in the component design, generalizing
// the teacher's RedisConsumerRepository.Set/Get shape to round-trip
// arbitrary JSON-able values rather than leaving Get a no-op stub.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"placedir/pkg/mlog"
	"placedir/pkg/mredis"
)

// Cache wraps a redis connection with a fixed TTL applied to every
// Set. A nil *Cache is valid and treated as "caching disabled" by
// every method, so callers that build one without Redis configured
// can still compose query.Service unconditionally.
type Cache struct {
	conn   *mredis.RedisConnection
	ttl    time.Duration
	logger mlog.Logger
}

// New builds a Cache over an already-configured redis connection.
func New(conn *mredis.RedisConnection, ttl time.Duration, logger mlog.Logger) *Cache {
	return &Cache{conn: conn, ttl: ttl, logger: logger}
}

// Get unmarshals the cached value stored under key into dest,
// reporting whether a value was found. Any failure (disconnected
// client, missing key, corrupt payload) is treated as a cache miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}

	client, err := c.conn.GetDB(ctx)
	if err != nil {
		c.logger.Debugf("cache: get client: %v", err)
		return false
	}

	val, err := client.Get(ctx, key).Result()
	if err != nil {
		return false
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		c.logger.Errorf("cache: unmarshal %s: %v", key, err)
		return false
	}

	return true
}

// Set marshals value and stores it under key with the cache's TTL.
// Failures are logged and never propagated: caching is best-effort,
// same failure semantics as command.Service's index/notify stages.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}

	client, err := c.conn.GetDB(ctx)
	if err != nil {
		c.logger.Debugf("cache: set client: %v", err)
		return
	}

	body, err := json.Marshal(value)
	if err != nil {
		c.logger.Errorf("cache: marshal %s: %v", key, err)
		return
	}

	if err := client.Set(ctx, key, body, c.ttl).Err(); err != nil {
		c.logger.Errorf("cache: set %s: %v", key, err)
	}
}

// Invalidate deletes the cached value under key, best-effort. Used by
// the command side after a write that would otherwise leave a stale
// read-side cache entry.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if c == nil {
		return
	}

	client, err := c.conn.GetDB(ctx)
	if err != nil {
		return
	}

	if err := client.Del(ctx, key).Err(); err != nil {
		c.logger.Debugf("cache: invalidate %s: %v", key, err)
	}
}
