// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"tweakgen/internal/ai"
	"tweakgen/internal/chat"
	"tweakgen/internal/generate"
	"tweakgen/internal/metrics"
	"tweakgen/internal/middleware"
	"tweakgen/internal/problem"
	"tweakgen/internal/stream"
)

// enhanceMaxTokens bounds the rewritten prompt; the policy asks for at
// most 500 characters.
const enhanceMaxTokens = 400

// Enhance rewrites a user's prompt into a more detailed one.
type Enhance struct {
	providers generate.ProviderSource
	images    *ai.ImageFetcher
}

// NewEnhance creates a new Enhance handler.
func NewEnhance(providers generate.ProviderSource) *Enhance {
	return &Enhance{providers: providers, images: ai.NewImageFetcher()}
}

type enhanceRequest struct {
	PromptData *chat.PromptData `json:"promptData"`
}

// Prompt streams the rewritten prompt as text events. Mentions stay in
// the prompt as their @labels; their token data is not sent.
func (h *Enhance) Prompt(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req enhanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if req.PromptData == nil || chat.Validate(*req.PromptData) != nil {
		problem.BadRequest(w, "Write a prompt or attach an image to enhance.", r.URL.Path)
		return
	}

	sw := stream.NewWriter(w, r.URL.Path)

	p, err := h.providers.Active()
	if err != nil {
		slog.Error("prompt enhancement unavailable", "error", err)
		sw.Fail(err)
		return
	}

	parts := chat.BuildUserParts(chat.PromptData{
		Content: req.PromptData.Content,
		Images:  req.PromptData.Images,
	})
	messages, err := h.images.Inline(r.Context(), []ai.Message{{Role: ai.RoleUser, Parts: parts}})
	if err != nil {
		if r.Context().Err() != nil {
			err = generate.ErrAborted
		} else {
			slog.Warn("enhancement image rejected", "account_id", sess.AccountID, "error", err)
			err = fmt.Errorf("%w: %w", generate.ErrImage, err)
		}
		sw.Fail(err)
		return
	}
	resp, err := p.Stream(r.Context(), ai.ChatRequest{
		Model:     h.providers.ModelFor(ai.ModelPromptEnhancement),
		System:    generate.EnhancePromptSystem,
		Messages:  messages,
		MaxTokens: enhanceMaxTokens,
	}, func(c ai.Chunk) error {
		if c.TextDelta == "" {
			return nil
		}
		if err := sw.TextDelta(c.TextDelta); err != nil {
			return fmt.Errorf("%w: %w", generate.ErrTransport, err)
		}
		return nil
	})
	if err != nil {
		var pe *ai.ProviderError
		switch {
		case r.Context().Err() != nil || ai.IsCanceled(err):
			err = generate.ErrAborted
		case errors.Is(err, generate.ErrTransport), errors.As(err, &pe):
		default:
			err = &ai.ProviderError{Provider: p.Name(), Code: ai.ErrCodeBadResponse, Message: err.Error(), Err: err}
		}
		slog.Warn("prompt enhancement failed", "account_id", sess.AccountID, "error", err)
		sw.Fail(err)
		return
	}

	metrics.AddTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	slog.Info("prompt enhanced",
		"account_id", sess.AccountID,
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	if err := sw.Finish(); err != nil {
		slog.Debug("could not finish enhancement stream", "error", err)
	}
}
