// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"tweakgen/internal/gate"
	"tweakgen/internal/problem"
	"tweakgen/internal/ratelimit"
)

// AnonymousClient is the rate-limit key for requests without a forwarded
// client address.
const AnonymousClient = "anonymous"

// RateLimit returns an HTTP middleware that limits requests per client IP.
// A limiter failure rejects the request.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			res, err := limiter.Limit(r.Context(), ip)
			if err != nil {
				slog.Error("rate limiter unavailable", "ip", ip, "path", r.URL.Path, "error", err)
			}
			if err != nil || !res.Success {
				for k, v := range (&gate.RateLimitError{Result: res}).Headers() {
					w.Header().Set(k, v)
				}
				problem.RateLimited(w, "Rate limit exceeded. Please try again later.", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the original client address from X-Forwarded-For,
// falling back to X-Real-IP. Requests that carry neither share the
// AnonymousClient bucket; the server always runs behind a proxy.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return AnonymousClient
}
