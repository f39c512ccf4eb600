package middleware

import (
	"mime"
	"net/http"

	"tweakgen/internal/problem"
	"tweakgen/internal/session"
)

// RequireJSON protects cookie-authenticated endpoints from cross-site
// form posts. State-changing requests that carry the session cookie must
// declare a JSON body, which a cross-origin page cannot send without a
// CORS preflight. Bearer-authenticated and safe requests pass through.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "" {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := r.Cookie(session.CookieName); err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodDelete && r.ContentLength <= 0 {
			// Bodyless deletes still need a same-origin marker.
			if r.Header.Get("X-Requested-With") == "" {
				problem.Write(w, problem.Problem{
					Type:     problem.TypeBadRequest,
					Title:    "Forbidden",
					Status:   http.StatusForbidden,
					Detail:   "missing X-Requested-With header",
					Instance: r.URL.Path,
				})
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			problem.Write(w, problem.Problem{
				Type:     problem.TypeBadRequest,
				Title:    "Unsupported Media Type",
				Status:   http.StatusUnsupportedMediaType,
				Detail:   "request body must be application/json",
				Instance: r.URL.Path,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
