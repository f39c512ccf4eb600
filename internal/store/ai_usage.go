// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"tweakgen/internal/models"
)

// AIUsageStore records billable generations.
type AIUsageStore struct {
	db *sql.DB
}

// NewAIUsageStore creates a new AIUsageStore.
func NewAIUsageStore(db *sql.DB) *AIUsageStore {
	return &AIUsageStore{db: db}
}

// Insert appends one usage row.
func (s *AIUsageStore) Insert(ctx context.Context, u *models.AIUsage) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ai_usage (user_id, model_id, prompt_tokens, completion_tokens)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, u.UserID, u.ModelID, u.PromptTokens, u.CompletionTokens).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ai usage: %w", err)
	}
	return nil
}

// CountByUser returns how many generations a user has been billed for.
func (s *AIUsageStore) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ai_usage WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ai usage: %w", err)
	}
	return n, nil
}

// RecentByUser returns the most recent usage rows for a user.
func (s *AIUsageStore) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AIUsage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, model_id, prompt_tokens, completion_tokens, created_at
		FROM ai_usage
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ai usage: %w", err)
	}
	defer rows.Close()

	var entries []models.AIUsage
	for rows.Next() {
		var u models.AIUsage
		if err := rows.Scan(&u.ID, &u.UserID, &u.ModelID, &u.PromptTokens, &u.CompletionTokens, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ai usage: %w", err)
		}
		entries = append(entries, u)
	}
	return entries, rows.Err()
}
