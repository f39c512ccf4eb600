// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a cached value lives when no TTL is given.
const DefaultTTL = time.Minute

// JSON caches small JSON-encoded values under a key prefix. It is best
// effort: failures are logged and reported as misses.
type JSON struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewJSON creates a cache storing values under prefix+key for ttl.
func NewJSON(client *redis.Client, prefix string, ttl time.Duration) *JSON {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &JSON{client: client, prefix: prefix, ttl: ttl}
}

// Get decodes the cached value for key into dst and reports whether it
// was found.
func (c *JSON) Get(ctx context.Context, key string, dst any) bool {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Warn("cache get error", "key", c.prefix+key, "error", err)
		return false
	}
	if err := json.Unmarshal(val, dst); err != nil {
		slog.Warn("cache decode error", "key", c.prefix+key, "error", err)
		return false
	}
	slog.Debug("cache hit", "key", c.prefix+key)
	return true
}

// Set stores v for key with the configured TTL.
func (c *JSON) Set(ctx context.Context, key string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode error", "key", c.prefix+key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, payload, c.ttl).Err(); err != nil {
		slog.Warn("cache set error", "key", c.prefix+key, "error", err)
	}
}

// Invalidate removes key from the cache.
func (c *JSON) Invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		slog.Warn("cache invalidate error", "key", c.prefix+key, "error", err)
	}
}
