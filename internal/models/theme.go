// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"

	"tweakgen/internal/theme"
)

// MaxThemeNameLength bounds Theme.Name.
const MaxThemeNameLength = 100

// Theme is a named set of light/dark tokens saved by a user. Styles are
// persisted as JSONB.
type Theme struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"userId"`
	Name      string       `json:"name"`
	Styles    theme.Styles `json:"styles"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
