// Package models holds the rows tweakgen persists in Postgres.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a login account. Saved themes, usage rows and the subscription
// all reference ID.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	// bcrypt hash; not part of any response.
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
