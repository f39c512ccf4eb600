// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindow limits requests per key in fixed time windows stored in
// Redis/Valkey, so every instance shares one budget.
type FixedWindow struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewFixedWindow creates a Redis-backed limiter allowing limit requests
// per window for each key.
func NewFixedWindow(client *redis.Client, prefix string, limit int, window time.Duration) (*FixedWindow, error) {
	if limit <= 0 || window < time.Millisecond {
		return nil, errors.New("ratelimit: limit and window must be positive")
	}
	if client == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "tweakgen:ratelimit"
	}
	return &FixedWindow{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}, nil
}

// Limit counts one request against key. On Redis failures it returns a
// rejecting Result together with the error; callers fail closed.
func (l *FixedWindow) Limit(ctx context.Context, key string) (Result, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}

	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	res := Result{
		Limit: l.limit,
		Reset: time.UnixMilli((slot + 1) * windowMs),
	}

	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return res, fmt.Errorf("ratelimit: redis: %w", err)
	}

	res.Success = count <= int64(l.limit)
	res.Remaining = max(l.limit-int(count), 0)
	return res, nil
}
