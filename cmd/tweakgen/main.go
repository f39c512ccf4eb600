// Package main is the entry point for the tweakgen server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tweakgen/internal/ai"
	"tweakgen/internal/cache"
	"tweakgen/internal/config"
	"tweakgen/internal/database"
	"tweakgen/internal/gate"
	"tweakgen/internal/generate"
	"tweakgen/internal/handlers"
	"tweakgen/internal/quota"
	"tweakgen/internal/ratelimit"
	"tweakgen/internal/router"
	"tweakgen/internal/session"
	"tweakgen/internal/store"
	"tweakgen/internal/usage"
)

func main() {
	// Load configuration from the optional file and environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	ctx := context.Background()

	// Connect to PostgreSQL.
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, err := database.Migrate(ctx, db)
	if err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("schema ready", "version", version)

	// Seed the development account (no-op if it already exists).
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (rate limits, sessions, subscription cache).
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Sessions: Valkey-backed cookies, plus bearer tokens when a secret is set.
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)
	tokens := session.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if !tokens.Enabled() {
		slog.Warn("JWT_SECRET not set, bearer tokens disabled")
	}
	resolver := session.NewResolver(sessionStore, tokens)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	themeStore := store.NewThemeStore(db)
	usageStore := store.NewAIUsageStore(db)
	subscriptionStore := store.NewSubscriptionStore(db)

	// Initialize the AI provider registry with all configured providers.
	aiRegistry := ai.NewRegistry(cfg.AIProvider, map[string]ai.ProviderConfig{
		"openai":  {APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, FastModel: cfg.OpenAIFastModel, BaseURL: cfg.OpenAIBaseURL},
		"gemini":  {APIKey: cfg.GeminiKey, Model: cfg.GeminiModel, FastModel: cfg.GeminiFastModel, BaseURL: cfg.GeminiBaseURL},
		"claude":  {APIKey: cfg.ClaudeKey, Model: cfg.ClaudeModel, FastModel: cfg.ClaudeFastModel, BaseURL: cfg.ClaudeBaseURL},
		"mistral": {APIKey: cfg.MistralKey, Model: cfg.MistralModel, FastModel: cfg.MistralFastModel, BaseURL: cfg.MistralBaseURL},
	})

	slog.Info("ai providers initialized",
		"active", aiRegistry.ActiveName(),
		"available", aiRegistry.Available(),
	)
	if !aiRegistry.HasProvider(cfg.AIProvider) {
		slog.Warn("active ai provider has no api key, generation will fail", "provider", cfg.AIProvider)
	}

	// Admission: per-IP fixed window in Valkey, then the account quota.
	generateLimiter, err := ratelimit.NewFixedWindow(valkeyClient, "ratelimit:generate", cfg.GenerateRateLimit, cfg.GenerateRateWindow)
	if err != nil {
		slog.Error("failed to configure generation rate limit", "error", err)
		os.Exit(1)
	}
	subscriptionCache := cache.NewJSON(valkeyClient, "subscription:", cfg.SubscriptionTTL)
	quotaChecker := quota.NewChecker(usageStore, subscriptionStore, subscriptionCache, cfg.FreeRequests).
		WithLedger(quota.NewRedisLedger(valkeyClient, "quota:free", quota.DefaultLedgerTTL))
	admission := gate.New(generateLimiter, quotaChecker, cfg.IsDev())

	orchestrator := generate.New(aiRegistry, admission, usage.NewRecorder(usageStore), generate.Config{
		StepBudget:     cfg.StepBudget,
		ThinkingBudget: cfg.ThinkingBudget,
	})
	if cfg.AIModeration {
		orchestrator.WithModerator(aiRegistry)
		slog.Info("prompt moderation enabled")
	}

	// Lighter endpoints use in-process token buckets.
	loginLimiter := ratelimit.NewMemory(cfg.LoginRateLimit, time.Minute)
	defer loginLimiter.Stop()
	enhanceLimiter := ratelimit.NewMemory(cfg.EnhanceRateLimit, cfg.EnhanceRateWindow)
	defer enhanceLimiter.Stop()
	themesLimiter := ratelimit.NewMemory(120, time.Minute)
	defer themesLimiter.Stop()

	// Set up the Chi router with all middleware and routes.
	r := router.New(resolver, router.Handlers{
		Auth:     handlers.NewAuth(userStore, sessionStore, tokens, quotaChecker),
		Generate: handlers.NewGenerate(orchestrator),
		Enhance:  handlers.NewEnhance(aiRegistry),
		Themes:   handlers.NewThemes(themeStore),
		Usage:    handlers.NewUsage(usageStore),
	}, router.Limiters{
		Login:   loginLimiter,
		Enhance: enhanceLimiter,
		Themes:  themesLimiter,
	})

	// WriteTimeout must accommodate a full generation stream: several
	// model steps, each possibly a minute or more.
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      6 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active streams up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// newLogger outputs text in development and JSON elsewhere.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
