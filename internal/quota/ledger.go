// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLedgerTTL is how long an idle account's count is kept before it
// is seeded again from recorded usage. It must outlive any generation.
const DefaultLedgerTTL = 24 * time.Hour

// Ledger counts the free requests an account has consumed, including
// reservations whose usage is not recorded yet.
type Ledger interface {
	// Reserve raises the count to at least used, then takes one slot if
	// the count is below limit. It returns the count after the call and
	// whether a slot was taken. The whole step is atomic per key.
	Reserve(ctx context.Context, key string, used, limit int) (int, bool, error)
	// Release gives back one slot. The count never drops below zero.
	Release(ctx context.Context, key string) error
	// Used returns the current count, zero for unknown keys.
	Used(ctx context.Context, key string) (int, error)
}

// Reservation is one free request taken at admission.
type Reservation struct {
	ledger Ledger
	key    string
	once   sync.Once
}

// Release returns the slot. Callers release when the generation ended
// without billable usage. Safe on a nil Reservation and idempotent.
func (r *Reservation) Release(ctx context.Context) {
	if r == nil {
		return
	}
	r.once.Do(func() {
		if err := r.ledger.Release(ctx, r.key); err != nil {
			slog.Warn("quota release failed", "account_id", r.key, "error", err)
		}
	})
}

// ---------- Valkey ----------

var reserveScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local used = tonumber(ARGV[1])
if cur < used then
  cur = used
end
local ok = 0
if cur < tonumber(ARGV[2]) then
  cur = cur + 1
  ok = 1
end
redis.call("SET", KEYS[1], cur, "PX", ARGV[3])
return {cur, ok}
`)

var releaseScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
if cur > 0 then
  return redis.call("DECR", KEYS[1])
end
return 0
`)

// RedisLedger keeps counts in Valkey so every instance shares them.
type RedisLedger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLedger creates a ledger storing counts under prefix:<key>.
func NewRedisLedger(client *redis.Client, prefix string, ttl time.Duration) *RedisLedger {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "tweakgen:quota"
	}
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &RedisLedger{client: client, prefix: prefix, ttl: ttl}
}

func (l *RedisLedger) key(k string) string { return l.prefix + ":" + k }

func (l *RedisLedger) Reserve(ctx context.Context, key string, used, limit int) (int, bool, error) {
	vals, err := reserveScript.Run(ctx, l.client, []string{l.key(key)}, used, limit, l.ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("quota ledger: %w", err)
	}
	if len(vals) != 2 {
		return 0, false, fmt.Errorf("quota ledger: unexpected reply %v", vals)
	}
	return int(vals[0]), vals[1] == 1, nil
}

func (l *RedisLedger) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key(key)}).Err(); err != nil {
		return fmt.Errorf("quota ledger: %w", err)
	}
	return nil
}

func (l *RedisLedger) Used(ctx context.Context, key string) (int, error) {
	n, err := l.client.Get(ctx, l.key(key)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quota ledger: %w", err)
	}
	return n, nil
}

// ---------- In-process ----------

type ledgerEntry struct {
	count   int
	expires time.Time
}

// MemoryLedger is a Ledger for a single instance.
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]ledgerEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryLedger creates an in-process ledger.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	if ttl <= 0 {
		ttl = DefaultLedgerTTL
	}
	return &MemoryLedger{entries: make(map[string]ledgerEntry), ttl: ttl, now: time.Now}
}

// current returns the live count for key. Callers hold mu.
func (l *MemoryLedger) current(key string) int {
	e, ok := l.entries[key]
	if !ok {
		return 0
	}
	if !l.now().Before(e.expires) {
		delete(l.entries, key)
		return 0
	}
	return e.count
}

func (l *MemoryLedger) Reserve(_ context.Context, key string, used, limit int) (int, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := max(l.current(key), used)
	ok := cur < limit
	if ok {
		cur++
	}
	l.entries[key] = ledgerEntry{count: cur, expires: l.now().Add(l.ttl)}
	return cur, ok, nil
}

func (l *MemoryLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur := l.current(key); cur > 0 {
		e := l.entries[key]
		e.count = cur - 1
		l.entries[key] = e
	}
	return nil
}

func (l *MemoryLedger) Used(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current(key), nil
}
