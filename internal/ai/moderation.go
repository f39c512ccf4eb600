// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"
)

// ModerationResult contains the outcome of a prompt safety check.
type ModerationResult struct {
	Safe       bool     // true if the prompt passes moderation
	Categories []string // flagged category names, sorted; empty when safe
}

// Moderator checks user prompts for policy violations before they reach
// the generation model.
type Moderator interface {
	CheckSafety(ctx context.Context, text string) (*ModerationResult, error)
}

// openAIModerator uses the free OpenAI Moderation API (POST /moderations).
type openAIModerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newOpenAIModerator(apiKey, baseURL string) *openAIModerator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIModerator{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (m *openAIModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var result struct {
		Results []struct {
			Flagged    bool            `json:"flagged"`
			Categories map[string]bool `json:"categories"`
		} `json:"results"`
	}
	err := postModeration(ctx, m.client, "openai", m.baseURL+"/moderations", m.apiKey,
		moderationRequest{Model: "omni-moderation-latest", Input: text}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Results) == 0 || !result.Results[0].Flagged {
		return &ModerationResult{Safe: true}, nil
	}
	return &ModerationResult{Categories: flaggedCategories(result.Results[0].Categories)}, nil
}

// mistralModerator uses Mistral's paid moderation endpoint.
type mistralModerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newMistralModerator(apiKey, baseURL string) *mistralModerator {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}
	return &mistralModerator{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (m *mistralModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var result struct {
		Results []struct {
			Categories map[string]bool `json:"categories"`
		} `json:"results"`
	}
	err := postModeration(ctx, m.client, "mistral", m.baseURL+"/moderations", m.apiKey,
		moderationRequest{Model: "mistral-moderation-latest", Input: text}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return &ModerationResult{Safe: true}, nil
	}

	// Mistral has no top-level "flagged"; any true category flags the prompt.
	flagged := flaggedCategories(result.Results[0].Categories)
	return &ModerationResult{Safe: len(flagged) == 0, Categories: flagged}, nil
}

// fallbackModerator tries primary first and switches to secondary when the
// primary rejects its credentials (e.g. project-scoped OpenAI keys).
type fallbackModerator struct {
	primary   Moderator
	secondary Moderator
}

func newFallbackModerator(primary, secondary Moderator) *fallbackModerator {
	return &fallbackModerator{primary: primary, secondary: secondary}
}

func (m *fallbackModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	res, err := m.primary.CheckSafety(ctx, text)
	if err == nil || !IsAuthenticationError(err) {
		return res, err
	}
	slog.Warn("primary moderator rejected credentials, using fallback", "error", err)
	return m.secondary.CheckSafety(ctx, text)
}

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

func postModeration(ctx context.Context, client *http.Client, provider, url, apiKey string, body moderationRequest, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s moderation marshal: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s moderation request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return transportError(provider, "moderation http", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(provider, "moderation read body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return httpError(provider, resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s moderation unmarshal: %w", provider, err)
	}
	return nil
}

// flaggedCategories renders true categories readably:
// "hate/threatening" becomes "hate (threatening)", "self_harm" "self harm".
func flaggedCategories(cats map[string]bool) []string {
	var flagged []string
	for cat, isFlagged := range cats {
		if !isFlagged {
			continue
		}
		display := cat
		if base, sub, ok := strings.Cut(cat, "/"); ok {
			display = base + " (" + sub + ")"
		}
		flagged = append(flagged, strings.ReplaceAll(display, "_", " "))
	}
	slices.Sort(flagged)
	return flagged
}
