// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tweakgen/internal/models"
	"tweakgen/internal/theme"
)

// ThemeStore handles saved theme operations. Every query is scoped to the
// owning user; a theme owned by someone else behaves as missing.
type ThemeStore struct {
	db *sql.DB
}

// NewThemeStore creates a new ThemeStore.
func NewThemeStore(db *sql.DB) *ThemeStore {
	return &ThemeStore{db: db}
}

// themeColumns lists the columns selected in theme queries.
const themeColumns = `id, user_id, name, styles, created_at, updated_at`

// scanTheme scans a theme row, decoding the JSONB styles column.
func scanTheme(scanner interface{ Scan(...any) error }) (*models.Theme, error) {
	var t models.Theme
	var styles []byte
	if err := scanner.Scan(&t.ID, &t.UserID, &t.Name, &styles, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(styles, &t.Styles); err != nil {
		return nil, fmt.Errorf("decode theme styles: %w", err)
	}
	return &t, nil
}

// ListByUser returns a user's themes, newest first.
func (s *ThemeStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Theme, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+themeColumns+`
		FROM themes
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	defer rows.Close()

	items := []models.Theme{}
	for rows.Next() {
		t, err := scanTheme(rows)
		if err != nil {
			return nil, fmt.Errorf("scan theme: %w", err)
		}
		items = append(items, *t)
	}
	return items, rows.Err()
}

// FindByID retrieves a theme owned by userID. Returns nil if not found.
func (s *ThemeStore) FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Theme, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+themeColumns+` FROM themes WHERE id = $1 AND user_id = $2`, id, userID)
	t, err := scanTheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find theme by id: %w", err)
	}
	return t, nil
}

// Create inserts a new theme for userID.
func (s *ThemeStore) Create(ctx context.Context, userID uuid.UUID, name string, styles theme.Styles) (*models.Theme, error) {
	raw, err := json.Marshal(styles)
	if err != nil {
		return nil, fmt.Errorf("encode theme styles: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO themes (user_id, name, styles)
		VALUES ($1, $2, $3)
		RETURNING `+themeColumns,
		userID, name, raw)
	t, err := scanTheme(row)
	if err != nil {
		return nil, fmt.Errorf("create theme: %w", err)
	}
	return t, nil
}

// Update changes the name and/or styles of a theme owned by userID. A nil
// argument leaves that column untouched. Returns nil if not found.
func (s *ThemeStore) Update(ctx context.Context, userID, id uuid.UUID, name *string, styles *theme.Styles) (*models.Theme, error) {
	var raw []byte
	if styles != nil {
		var err error
		if raw, err = json.Marshal(styles); err != nil {
			return nil, fmt.Errorf("encode theme styles: %w", err)
		}
	}
	row := s.db.QueryRowContext(ctx, `
		UPDATE themes
		SET name = COALESCE($3::text, name),
		    styles = COALESCE($4::jsonb, styles),
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+themeColumns,
		id, userID, name, raw)
	t, err := scanTheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update theme: %w", err)
	}
	return t, nil
}

// Delete removes a theme owned by userID and reports whether a row existed.
func (s *ThemeStore) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM themes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete theme: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete theme rows: %w", err)
	}
	return n > 0, nil
}
