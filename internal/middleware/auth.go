// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"tweakgen/internal/problem"
	"tweakgen/internal/session"
)

type sessionKey struct{}

// SessionResolver finds the caller's session. *session.Resolver
// satisfies it.
type SessionResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*session.Data, error)
}

// LoadSession resolves the caller from a bearer token or session cookie
// and stores it in the request context. It does not enforce
// authentication; a lookup failure is treated as anonymous.
func LoadSession(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := resolver.Resolve(r.Context(), r)
			if err != nil {
				slog.Warn("session lookup failed", "error", err, "request_id", RequestIDFromCtx(r.Context()))
				next.ServeHTTP(w, r)
				return
			}

			if data != nil {
				r = r.WithContext(WithSession(r.Context(), data))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth answers 401 when LoadSession found no caller. Bearer
// clients get a challenge naming the token scheme.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "" {
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		}
		problem.Unauthorized(w, "sign in to use this endpoint", r.URL.Path)
	})
}

// WithSession returns ctx carrying data.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, sessionKey{}, data)
}

// SessionFromCtx returns the caller's session, or nil for anonymous
// requests.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(sessionKey{}).(*session.Data)
	return data
}
