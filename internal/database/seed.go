package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Dev account credentials created by Seed.
const (
	SeedEmail    = "dev@tweakgen.local"
	SeedPassword = "tweakgen"
)

// Seed populates the database with development data: one account with an
// open-ended active subscription, so local generations are not metered.
// It does nothing when any user already exists.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var userID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id
	`, SeedEmail, string(hash)).Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, status)
		VALUES ($1, 'active')
	`, userID)
	if err != nil {
		return fmt.Errorf("seed insert subscription: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with dev account",
		"email", SeedEmail,
		"password", SeedPassword,
	)
	return nil
}
