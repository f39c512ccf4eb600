// Package cache provides the Valkey (Redis-compatible) client and a small
// JSON value cache built on it.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	valkeyDialTimeout = 5 * time.Second
	valkeyPoolSize    = 20
	valkeyPingTimeout = 5 * time.Second
)

// ConnectValkey opens a client for host:port and pings it. Rate-limit
// counters, sessions and the subscription cache share this client.
func ConnectValkey(ctx context.Context, host, port, password string) (*redis.Client, error) {
	addr := net.JoinHostPort(host, port)
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: valkeyDialTimeout,
		PoolSize:    valkeyPoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, valkeyPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", addr, err)
	}

	slog.Info("valkey connected", "addr", addr, "pool_size", valkeyPoolSize)
	return client, nil
}
