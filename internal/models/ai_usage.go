// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// AIUsage is one billable generation. Rows are insert-only.
type AIUsage struct {
	ID               int64     `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	ModelID          string    `json:"model_id"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// TotalTokens returns prompt plus completion tokens.
func (u *AIUsage) TotalTokens() int {
	return u.PromptTokens + u.CompletionTokens
}
