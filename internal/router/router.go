// Package router sets up all HTTP routes and middleware chains for the
// tweakgen server. Everything under /api is JSON; generation and prompt
// enhancement respond with a UI message stream.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tweakgen/internal/handlers"
	"tweakgen/internal/metrics"
	"tweakgen/internal/middleware"
	"tweakgen/internal/problem"
	"tweakgen/internal/ratelimit"
)

// Handlers groups the endpoint handlers the router mounts.
type Handlers struct {
	Auth     *handlers.Auth
	Generate *handlers.Generate
	Enhance  *handlers.Enhance
	Themes   *handlers.Themes
	Usage    *handlers.Usage
}

// Limiters holds the per-IP limiters of the lighter endpoints. Generation
// is limited inside the admission gate instead. A nil limiter disables
// limiting for its routes.
type Limiters struct {
	Login   ratelimit.Limiter
	Enhance ratelimit.Limiter
	Themes  ratelimit.Limiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessions middleware.SessionResolver, h Handlers, lim Limiters) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(metrics.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problem.NotFound(w, "no route for "+r.URL.Path, r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, problem.Problem{
			Type:     problem.TypeBadRequest,
			Title:    "Method Not Allowed",
			Status:   http.StatusMethodNotAllowed,
			Detail:   r.Method + " is not supported on " + r.URL.Path,
			Instance: r.URL.Path,
		})
	})

	// Health check and scrape endpoint, no session.
	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LoadSession(sessions))
		r.Use(middleware.RequireJSON)

		r.Route("/auth", func(r chi.Router) {
			r.With(limit(lim.Login)).Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
		})

		// Authenticated API.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/account", h.Auth.Account)
			r.Get("/usage", h.Usage.List)
			r.Post("/generate-theme", h.Generate.Theme)
			r.With(limit(lim.Enhance)).Post("/enhance-prompt", h.Enhance.Prompt)

			r.Route("/themes", func(r chi.Router) {
				r.Use(limit(lim.Themes))
				r.Get("/", h.Themes.List)
				r.Post("/", h.Themes.Create)
				r.Get("/{id}", h.Themes.Get)
				r.Put("/{id}", h.Themes.Update)
				r.Delete("/{id}", h.Themes.Delete)
				r.Get("/{id}/css", h.Themes.CSS)
			})
		})
	})

	return r
}

func limit(l ratelimit.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RateLimit(l)
}
