// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package gate admits or rejects a generation request before any model
// work starts: first a per-IP rate limit, then the account's quota.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tweakgen/internal/quota"
	"tweakgen/internal/ratelimit"
)

// RateLimitError rejects a request that exceeded the network rate limit.
type RateLimitError struct {
	Result ratelimit.Result
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %d requests per window, resets at %s",
		e.Result.Limit, e.Result.Reset.UTC().Format(time.RFC3339))
}

// Headers returns the X-RateLimit-* values describing the rejection.
func (e *RateLimitError) Headers() map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(e.Result.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(e.Result.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(e.Result.Reset.UnixMilli(), 10),
	}
}

// SubscriptionRequiredError rejects a free account whose allowance is spent.
type SubscriptionRequiredError struct {
	RequestsRemaining int
	Reason            string
}

func (e *SubscriptionRequiredError) Error() string {
	if e.Reason != "" {
		return "subscription required: " + e.Reason
	}
	return "subscription required"
}

// QuotaReserver is satisfied by *quota.Checker.
type QuotaReserver interface {
	Reserve(ctx context.Context, accountID uuid.UUID) (quota.Status, *quota.Reservation, error)
}

// Gate runs the admission checks in order. A nil limiter or a gate built
// with skipRateLimit only checks quota.
type Gate struct {
	limiter       ratelimit.Limiter
	quota         QuotaReserver
	skipRateLimit bool
}

// New creates a Gate. Development servers pass skipRateLimit=true.
func New(limiter ratelimit.Limiter, q QuotaReserver, skipRateLimit bool) *Gate {
	return &Gate{limiter: limiter, quota: q, skipRateLimit: skipRateLimit}
}

// Admit returns *RateLimitError or *SubscriptionRequiredError when the
// request is rejected, and any other error when a check could not be
// evaluated. An admitted free request holds the returned reservation; the
// caller releases it if the generation bills nothing. Subscribers get a
// nil reservation.
func (g *Gate) Admit(ctx context.Context, accountID uuid.UUID, clientIP string) (*quota.Reservation, error) {
	if err := g.checkRate(ctx, clientIP); err != nil {
		return nil, err
	}

	st, res, err := g.quota.Reserve(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("gate: %w", err)
	}
	if !st.CanProceed {
		slog.Info("generation rejected by quota",
			"account_id", accountID,
			"requests_remaining", st.RequestsRemaining,
		)
		return nil, &SubscriptionRequiredError{RequestsRemaining: st.RequestsRemaining, Reason: st.Reason}
	}
	return res, nil
}

func (g *Gate) checkRate(ctx context.Context, clientIP string) error {
	if g.skipRateLimit || g.limiter == nil {
		return nil
	}
	res, err := g.limiter.Limit(ctx, clientIP)
	if err != nil {
		// Fail closed: a limiter outage must not open the model endpoint.
		slog.Error("rate limiter unavailable, rejecting request", "ip", clientIP, "error", err)
		return &RateLimitError{Result: res}
	}
	if !res.Success {
		slog.Info("generation rejected by rate limit", "ip", clientIP, "limit", res.Limit, "reset", res.Reset)
		return &RateLimitError{Result: res}
	}
	return nil
}

// IsRejection reports whether err is one of the gate's rejection types.
func IsRejection(err error) bool {
	var rl *RateLimitError
	var sub *SubscriptionRequiredError
	return errors.As(err, &rl) || errors.As(err, &sub)
}
