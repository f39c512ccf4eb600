// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"tweakgen/internal/problem"
)

// Recoverer turns a handler panic into a logged stack trace and a 500
// problem response. Once a response has started (a theme stream, say) the
// status can no longer change, so only the log entry is written.
// http.ErrAbortHandler is re-raised for net/http to drop the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			// Recoverer sits outside RequestID; the id is on the response.
			slog.Error("panic recovered",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", w.Header().Get(RequestIDHeader),
				"committed", rw.written,
				"stack", string(debug.Stack()),
			)
			if !rw.written {
				problem.InternalError(rw, "unexpected server error", r.URL.Path)
			}
		}()

		next.ServeHTTP(rw, r)
	})
}
