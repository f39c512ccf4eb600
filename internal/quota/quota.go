// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package quota decides whether an account may start another generation.
// Subscribers are unlimited; free accounts get a fixed number of requests,
// counted from recorded usage plus requests still in flight.
package quota

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tweakgen/internal/cache"
)

// DefaultFreeRequests is the lifetime allowance of a free account.
const DefaultFreeRequests = 5

// Unlimited is reported as RequestsRemaining for subscribed accounts.
const Unlimited = -1

// Status is the outcome of a quota check.
type Status struct {
	CanProceed        bool   `json:"canProceed"`
	RequestsRemaining int    `json:"requestsRemaining"`
	IsSubscribed      bool   `json:"isSubscribed"`
	Reason            string `json:"reason,omitempty"`
}

// UsageCounter counts billed generations for an account.
type UsageCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// SubscriptionSource reports whether an account has an active plan.
type SubscriptionSource interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Checker evaluates Status for an account and reserves free requests at
// admission.
type Checker struct {
	usage        UsageCounter
	subs         SubscriptionSource
	cache        *cache.JSON // subscription state; nil disables caching
	ledger       Ledger
	freeRequests int
}

// NewChecker creates a Checker with an in-process ledger. freeRequests
// <= 0 selects DefaultFreeRequests.
func NewChecker(usage UsageCounter, subs SubscriptionSource, c *cache.JSON, freeRequests int) *Checker {
	if freeRequests <= 0 {
		freeRequests = DefaultFreeRequests
	}
	return &Checker{
		usage:        usage,
		subs:         subs,
		cache:        c,
		ledger:       NewMemoryLedger(DefaultLedgerTTL),
		freeRequests: freeRequests,
	}
}

// WithLedger replaces the reservation ledger. Multi-instance deployments
// pass a RedisLedger so every instance shares one count.
func (c *Checker) WithLedger(l Ledger) *Checker {
	c.ledger = l
	return c
}

// Check reports the account's allowance without reserving anything. In
// flight reservations count as used.
func (c *Checker) Check(ctx context.Context, accountID uuid.UUID) (Status, error) {
	subscribed, used, err := c.load(ctx, accountID)
	if err != nil {
		return Status{}, fmt.Errorf("quota check: %w", err)
	}
	if subscribed {
		return Status{CanProceed: true, RequestsRemaining: Unlimited, IsSubscribed: true}, nil
	}

	reserved, err := c.ledger.Used(ctx, accountID.String())
	if err != nil {
		return Status{}, fmt.Errorf("quota check: %w", err)
	}
	return c.freeStatus(max(used, reserved)), nil
}

// Reserve admits one generation. Free accounts take a slot from the ledger
// in a single atomic step, so concurrent requests cannot overrun the
// allowance. The returned Reservation is nil unless a slot was taken; its
// holder releases it when the generation ends without billable usage.
// RequestsRemaining counts the slots left after this one.
func (c *Checker) Reserve(ctx context.Context, accountID uuid.UUID) (Status, *Reservation, error) {
	subscribed, used, err := c.load(ctx, accountID)
	if err != nil {
		return Status{}, nil, fmt.Errorf("quota reserve: %w", err)
	}
	if subscribed {
		return Status{CanProceed: true, RequestsRemaining: Unlimited, IsSubscribed: true}, nil, nil
	}

	key := accountID.String()
	n, ok, err := c.ledger.Reserve(ctx, key, used, c.freeRequests)
	if err != nil {
		return Status{}, nil, fmt.Errorf("quota reserve: %w", err)
	}
	if !ok {
		return c.freeStatus(n), nil, nil
	}
	return Status{CanProceed: true, RequestsRemaining: max(c.freeRequests-n, 0)},
		&Reservation{ledger: c.ledger, key: key}, nil
}

// Invalidate drops the cached subscription state for an account so the
// next check reads the database.
func (c *Checker) Invalidate(ctx context.Context, accountID uuid.UUID) {
	if c.cache != nil {
		c.cache.Invalidate(ctx, accountID.String())
	}
}

func (c *Checker) freeStatus(used int) Status {
	remaining := max(c.freeRequests-used, 0)
	st := Status{CanProceed: remaining > 0, RequestsRemaining: remaining}
	if !st.CanProceed {
		st.Reason = fmt.Sprintf("free limit of %d requests reached", c.freeRequests)
	}
	return st
}

// load fetches subscription state and the recorded usage concurrently.
func (c *Checker) load(ctx context.Context, accountID uuid.UUID) (subscribed bool, used int, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subscribed, err = c.isSubscribed(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		used, err = c.usage.CountByUser(gctx, accountID)
		return err
	})
	err = g.Wait()
	return subscribed, used, err
}

func (c *Checker) isSubscribed(ctx context.Context, accountID uuid.UUID) (bool, error) {
	key := accountID.String()
	var cached bool
	if c.cache != nil && c.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	active, err := c.subs.IsActive(ctx, accountID)
	if err != nil {
		return false, err
	}
	if c.cache != nil {
		c.cache.Set(ctx, key, active)
	}
	return active, nil
}
