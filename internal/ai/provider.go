// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package ai provides a unified streaming interface over multiple LLM
// providers (Gemini, OpenAI, Claude, Mistral). Each provider implements the
// Provider interface, and the Registry selects the active one by name.
package ai

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Provider defines the interface that all AI providers must implement.
// Each provider handles its own HTTP communication and stream parsing.
type Provider interface {
	// Stream runs one completion, calling fn for every text delta and
	// assembled tool call, and returns the summary once the model stops.
	// Cancelling ctx aborts the underlying HTTP request.
	Stream(ctx context.Context, req ChatRequest, fn StreamFunc) (*Response, error)

	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
}

// ModelRole selects which configured model a call uses.
type ModelRole string

const (
	// ModelThemeGeneration drives the chat turn and the nested theme object.
	ModelThemeGeneration ModelRole = "theme-generation"
	// ModelPromptEnhancement rewrites user prompts; a cheaper model suffices.
	ModelPromptEnhancement ModelRole = "prompt-enhancement"
)

// ProviderConfig holds the credentials and settings for a single provider.
type ProviderConfig struct {
	APIKey    string
	Model     string // theme generation
	FastModel string // prompt enhancement; falls back to Model
	BaseURL   string
}

// Registry manages available AI providers and selects the active one.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	models    map[string]ProviderConfig
	active    string
	moderator Moderator // nil when no moderation API is available
}

// NewRegistry creates a registry and initialises providers for every config
// that has a non-empty API key. Providers without keys are silently skipped.
// A Moderator is configured when an OpenAI or Mistral key is present:
// OpenAI's free endpoint is preferred and Mistral is the fallback.
func NewRegistry(active string, configs map[string]ProviderConfig) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		models:    make(map[string]ProviderConfig),
		active:    active,
	}

	for name, cfg := range configs {
		if cfg.APIKey == "" {
			continue
		}
		switch name {
		case "openai":
			r.providers[name] = newOpenAI(cfg)
		case "gemini":
			r.providers[name] = newGemini(cfg)
		case "claude":
			r.providers[name] = newClaude(cfg)
		case "mistral":
			r.providers[name] = newMistral(cfg)
		default:
			continue
		}
		r.models[name] = cfg
	}

	openaiCfg, hasOpenAI := configs["openai"]
	hasOpenAI = hasOpenAI && openaiCfg.APIKey != ""
	mistralCfg, hasMistral := configs["mistral"]
	hasMistral = hasMistral && mistralCfg.APIKey != ""

	switch {
	case hasOpenAI && hasMistral:
		r.moderator = newFallbackModerator(
			newOpenAIModerator(openaiCfg.APIKey, openaiCfg.BaseURL),
			newMistralModerator(mistralCfg.APIKey, mistralCfg.BaseURL),
		)
	case hasOpenAI:
		r.moderator = newOpenAIModerator(openaiCfg.APIKey, openaiCfg.BaseURL)
	case hasMistral:
		r.moderator = newMistralModerator(mistralCfg.APIKey, mistralCfg.BaseURL)
	}

	return r
}

// Active returns the currently active provider.
func (r *Registry) Active() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[r.active]
	if !ok {
		return nil, fmt.Errorf("ai: no provider configured for %q", r.active)
	}
	return p, nil
}

// ActiveName returns the name of the currently active provider.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.active
}

// ModelFor returns the model id the active provider uses for role. An
// empty string means the provider's built-in default.
func (r *Registry) ModelFor(role ModelRole) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg := r.models[r.active]
	if role == ModelPromptEnhancement && cfg.FastModel != "" {
		return cfg.FastModel
	}
	return cfg.Model
}

// Available returns the sorted names of all providers with API keys.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Register adds or replaces a provider in the registry. Tests use it to
// inject fakes; cfg supplies the model ids reported by ModelFor.
func (r *Registry) Register(name string, p Provider, cfg ProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
	r.models[name] = cfg
}

// SetModerator replaces the moderation backend. nil disables moderation.
func (r *Registry) SetModerator(m Moderator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moderator = m
}

// CheckPrompt runs the user prompt through the moderation API. It returns
// a safe result when no moderator is configured; providers still apply
// their own safety filters.
func (r *Registry) CheckPrompt(ctx context.Context, prompt string) (*ModerationResult, error) {
	r.mu.RLock()
	m := r.moderator
	r.mu.RUnlock()

	if m == nil {
		return &ModerationResult{Safe: true}, nil
	}
	return m.CheckSafety(ctx, prompt)
}

// HasProvider checks whether a named provider is configured and available.
func (r *Registry) HasProvider(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.providers[name]
	return ok
}
