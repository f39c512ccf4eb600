// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ratelimit provides the request limiters used in front of the
// model endpoints: a Redis fixed window shared by every instance, and an
// in-process token bucket for cheaper endpoints.
package ratelimit

import (
	"context"
	"time"
)

// Result describes one limiter decision.
type Result struct {
	Success   bool
	Limit     int
	Remaining int
	Reset     time.Time // when the current window ends
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	Limit(ctx context.Context, key string) (Result, error)
}
