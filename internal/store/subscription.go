// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tweakgen/internal/models"
)

// SubscriptionStore reads and writes the one-per-user subscription row.
type SubscriptionStore struct {
	db *sql.DB
}

// NewSubscriptionStore creates a new SubscriptionStore.
func NewSubscriptionStore(db *sql.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// FindByUser returns the user's subscription, or nil if they never had one.
func (s *SubscriptionStore) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, status, current_period_end, created_at, updated_at
		FROM subscriptions WHERE user_id = $1
	`, userID).Scan(&sub.UserID, &sub.Status, &sub.CurrentPeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return &sub, nil
}

// IsActive reports whether userID currently has an active subscription.
func (s *SubscriptionStore) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	sub, err := s.FindByUser(ctx, userID)
	if err != nil || sub == nil {
		return false, err
	}
	return sub.IsActive(time.Now()), nil
}

// Upsert creates or replaces the user's subscription.
func (s *SubscriptionStore) Upsert(ctx context.Context, userID uuid.UUID, status models.SubscriptionStatus, periodEnd *time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, status, current_period_end)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET status = EXCLUDED.status,
		    current_period_end = EXCLUDED.current_period_end,
		    updated_at = NOW()
	`, userID, status, periodEnd)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}
