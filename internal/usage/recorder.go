// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package usage records billable model usage. Recording is best-effort:
// a failed insert is logged and never fails the generation it belongs to.
package usage

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"tweakgen/internal/ai"
	"tweakgen/internal/metrics"
	"tweakgen/internal/models"
)

// Inserter persists one usage row. *store.AIUsageStore satisfies it.
type Inserter interface {
	Insert(ctx context.Context, u *models.AIUsage) error
}

// Recorder writes usage rows and feeds the token counter.
type Recorder struct {
	store Inserter
}

// NewRecorder creates a Recorder backed by store.
func NewRecorder(store Inserter) *Recorder {
	return &Recorder{store: store}
}

// Record stores one generation's token usage. Zero usage is ignored.
func (r *Recorder) Record(ctx context.Context, accountID uuid.UUID, modelID string, u ai.Usage) {
	if u.IsZero() {
		return
	}
	metrics.AddTokens(u.PromptTokens, u.CompletionTokens)

	row := &models.AIUsage{
		UserID:           accountID,
		ModelID:          modelID,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
	}
	if err := r.store.Insert(ctx, row); err != nil {
		slog.Warn("failed to record ai usage",
			"action", "record_usage",
			"account_id", accountID,
			"model", modelID,
			"usage", u,
			"error", err,
		)
		return
	}
	slog.Debug("ai usage recorded",
		"account_id", accountID,
		"model", modelID,
		"total_tokens", u.Total(),
	)
}
