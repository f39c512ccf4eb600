// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tweakgen/internal/quota"
	"tweakgen/internal/ratelimit"
)

// ==========================================================================
// Rate limit
// ==========================================================================

func TestAdmitRateLimit(t *testing.T) {
	limiter, _ := newRedisLimiter(t, 2)
	q := &fakeQuota{status: quota.Status{CanProceed: true, RequestsRemaining: quota.Unlimited}}
	g := New(limiter, q, false)
	ctx := context.Background()
	account := uuid.New()

	for i := 0; i < 2; i++ {
		if _, err := g.Admit(ctx, account, "203.0.113.7"); err != nil {
			t.Fatalf("request %d: unexpected rejection: %v", i+1, err)
		}
	}

	_, err := g.Admit(ctx, account, "203.0.113.7")
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("third request: got %v, want *RateLimitError", err)
	}
	if rl.Result.Limit != 2 || rl.Result.Remaining != 0 {
		t.Errorf("result = %+v", rl.Result)
	}
	h := rl.Headers()
	if h["X-RateLimit-Limit"] != "2" || h["X-RateLimit-Remaining"] != "0" || h["X-RateLimit-Reset"] == "" {
		t.Errorf("headers = %v", h)
	}
	if q.calls != 2 {
		t.Errorf("quota checked %d times, want 2 (not for rate-limited request)", q.calls)
	}

	if _, err := g.Admit(ctx, account, "198.51.100.1"); err != nil {
		t.Errorf("other IP should be admitted: %v", err)
	}
}

func TestAdmitRateLimitFailsClosed(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 5)
	mr.Close()

	q := &fakeQuota{status: quota.Status{CanProceed: true}}
	_, err := New(limiter, q, false).Admit(context.Background(), uuid.New(), "203.0.113.7")
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("got %v, want *RateLimitError when Redis is down", err)
	}
	if q.calls != 0 {
		t.Error("quota must not be checked after a limiter failure")
	}
}

func TestAdmitSkipsRateLimitInDev(t *testing.T) {
	limiter, _ := newRedisLimiter(t, 1)
	g := New(limiter, &fakeQuota{status: quota.Status{CanProceed: true}}, true)

	for i := 0; i < 5; i++ {
		if _, err := g.Admit(context.Background(), uuid.New(), "anonymous"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
}

// ==========================================================================
// Quota
// ==========================================================================

func TestAdmitQuota(t *testing.T) {
	tests := []struct {
		name    string
		status  quota.Status
		err     error
		wantSub bool
		wantErr bool
	}{
		{name: "subscribed", status: quota.Status{CanProceed: true, IsSubscribed: true, RequestsRemaining: -1}},
		{name: "free with allowance", status: quota.Status{CanProceed: true, RequestsRemaining: 3}},
		{name: "exhausted", status: quota.Status{CanProceed: false, RequestsRemaining: 0, Reason: "limit"}, wantSub: true, wantErr: true},
		{name: "check error", err: errors.New("db down"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(nil, &fakeQuota{status: tt.status, err: tt.err}, false)
			_, err := g.Admit(context.Background(), uuid.New(), "203.0.113.7")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			var sub *SubscriptionRequiredError
			if got := errors.As(err, &sub); got != tt.wantSub {
				t.Fatalf("SubscriptionRequiredError = %v, want %v (err %v)", got, tt.wantSub, err)
			}
			if tt.wantSub && sub.RequestsRemaining != 0 {
				t.Errorf("RequestsRemaining = %d, want 0", sub.RequestsRemaining)
			}
			if IsRejection(err) != tt.wantSub {
				t.Errorf("IsRejection = %v, want %v", IsRejection(err), tt.wantSub)
			}
		})
	}
}

func TestAdmitReservesFreeSlots(t *testing.T) {
	checker := quota.NewChecker(usageCount(1), notSubscribed{}, nil, 2)
	g := New(nil, checker, false)
	ctx := context.Background()
	account := uuid.New()

	res, err := g.Admit(ctx, account, "203.0.113.7")
	if err != nil || res == nil {
		t.Fatalf("first admit: res=%v err=%v", res, err)
	}
	_, err = g.Admit(ctx, account, "198.51.100.1")
	var sub *SubscriptionRequiredError
	if !errors.As(err, &sub) {
		t.Fatalf("second admit from another IP: got %v, want *SubscriptionRequiredError", err)
	}

	res.Release(ctx)
	if _, err := g.Admit(ctx, account, "198.51.100.1"); err != nil {
		t.Errorf("released slot should admit again: %v", err)
	}
}

// ---------- Helpers ----------

func newRedisLimiter(t *testing.T, limit int) (*ratelimit.FixedWindow, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	l, err := ratelimit.NewFixedWindow(client, "test:gate", limit, time.Hour)
	if err != nil {
		t.Fatalf("NewFixedWindow: %v", err)
	}
	return l, mr
}

type fakeQuota struct {
	status quota.Status
	err    error
	calls  int
}

func (f *fakeQuota) Reserve(context.Context, uuid.UUID) (quota.Status, *quota.Reservation, error) {
	f.calls++
	return f.status, nil, f.err
}

type usageCount int

func (n usageCount) CountByUser(context.Context, uuid.UUID) (int, error) { return int(n), nil }

type notSubscribed struct{}

func (notSubscribed) IsActive(context.Context, uuid.UUID) (bool, error) { return false, nil }
