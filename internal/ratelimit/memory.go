// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// memoryEntry tracks the token bucket of a single client.
type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory is an in-process per-key token bucket. It refills limit tokens
// per window with a burst of limit. State is lost on restart and is not
// shared between instances.
type Memory struct {
	mu      sync.Mutex
	clients map[string]*memoryEntry
	limit   int
	every   rate.Limit
	idle    time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemory creates a limiter that allows limit requests per window for
// each key. It starts a background goroutine that forgets idle keys.
func NewMemory(limit int, window time.Duration) *Memory {
	m := &Memory{
		clients: make(map[string]*memoryEntry),
		limit:   limit,
		every:   rate.Limit(float64(limit) / window.Seconds()),
		idle:    max(window, 10*time.Minute),
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.cleanup()
			case <-m.stopCh:
				return
			}
		}
	}()

	return m
}

// Stop terminates the background cleanup goroutine.
func (m *Memory) Stop() {
	m.once.Do(func() { close(m.stopCh) })
}

// Limit takes one token for key.
func (m *Memory) Limit(_ context.Context, key string) (Result, error) {
	now := time.Now()

	m.mu.Lock()
	e, ok := m.clients[key]
	if !ok {
		e = &memoryEntry{limiter: rate.NewLimiter(m.every, m.limit)}
		m.clients[key] = e
	}
	e.lastSeen = now
	m.mu.Unlock()

	allowed := e.limiter.AllowN(now, 1)
	tokens := e.limiter.TokensAt(now)

	res := Result{
		Success:   allowed,
		Limit:     m.limit,
		Remaining: max(int(tokens), 0),
		Reset:     now,
	}
	if missing := 1 - tokens; missing > 0 && m.every > 0 {
		res.Reset = now.Add(time.Duration(missing / float64(m.every) * float64(time.Second)))
	}
	return res, nil
}

// cleanup removes entries with no recent activity.
func (m *Memory) cleanup() {
	cutoff := time.Now().Add(-m.idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.clients {
		if e.lastSeen.Before(cutoff) {
			delete(m.clients, key)
		}
	}
}
