// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the billing provider's lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription records a user's paid plan. A user has at most one row.
type Subscription struct {
	UserID           uuid.UUID          `json:"user_id"`
	Status           SubscriptionStatus `json:"status"`
	CurrentPeriodEnd *time.Time         `json:"current_period_end"` // nil: open-ended
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// IsActive reports whether the subscription grants unlimited generations
// at time now.
func (s *Subscription) IsActive(now time.Time) bool {
	if s.Status != SubscriptionActive && s.Status != SubscriptionTrialing {
		return false
	}
	return s.CurrentPeriodEnd == nil || now.Before(*s.CurrentPeriodEnd)
}
