// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tweakgen/internal/middleware"
	"tweakgen/internal/models"
	"tweakgen/internal/problem"
	"tweakgen/internal/slug"
	"tweakgen/internal/theme"
)

// ThemeStore persists saved themes. *store.ThemeStore satisfies it.
type ThemeStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Theme, error)
	FindByID(ctx context.Context, userID, id uuid.UUID) (*models.Theme, error)
	Create(ctx context.Context, userID uuid.UUID, name string, styles theme.Styles) (*models.Theme, error)
	Update(ctx context.Context, userID, id uuid.UUID, name *string, styles *theme.Styles) (*models.Theme, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

// Themes groups the saved-theme endpoints. Every route is owner-scoped:
// a theme that belongs to someone else is reported as not found.
type Themes struct {
	store ThemeStore
}

// NewThemes creates a new Themes handler group.
func NewThemes(store ThemeStore) *Themes {
	return &Themes{store: store}
}

type createThemeRequest struct {
	Name   string        `json:"name"`
	Styles *theme.Styles `json:"styles"`
}

type updateThemeRequest struct {
	Name   *string       `json:"name"`
	Styles *theme.Styles `json:"styles"`
}

// List returns the caller's themes, newest first.
func (h *Themes) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	themes, err := h.store.ListByUser(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("list themes failed", "account_id", sess.AccountID, "error", err)
		problem.InternalError(w, "could not load themes", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, themes)
}

// Get returns one theme.
func (h *Themes) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.find(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CSS renders one theme as a shadcn/ui stylesheet. ?fonts=false omits the
// font variables; ?download=1 serves it as an attachment named after the
// theme.
func (h *Themes) CSS(w http.ResponseWriter, r *http.Request) {
	t, ok := h.find(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+slug.Generate(t.Name)+`.css"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(theme.GenerateCSS(t.Styles, theme.CSSOptions{
		IncludeFonts: r.URL.Query().Get("fonts") != "false",
	})))
}

// Create saves a new theme.
func (h *Themes) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req createThemeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if msg := validateThemeName(req.Name); msg != "" {
		problem.BadRequest(w, msg, r.URL.Path)
		return
	}
	if req.Styles == nil {
		problem.BadRequest(w, "Theme styles are required.", r.URL.Path)
		return
	}
	if err := theme.ValidateStored(*req.Styles); err != nil {
		problem.BadRequest(w, err.Error(), r.URL.Path)
		return
	}

	t, err := h.store.Create(r.Context(), sess.AccountID, strings.TrimSpace(req.Name), *req.Styles)
	if err != nil {
		slog.Error("create theme failed", "account_id", sess.AccountID, "error", err)
		problem.InternalError(w, "could not save theme", r.URL.Path)
		return
	}

	slog.Info("theme created", "account_id", sess.AccountID, "theme_id", t.ID)
	writeJSON(w, http.StatusCreated, t)
}

// Update changes the name and/or styles of a theme.
func (h *Themes) Update(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := idParam(r)
	if !ok {
		problem.NotFound(w, "theme not found", r.URL.Path)
		return
	}

	var req updateThemeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if req.Name == nil && req.Styles == nil {
		problem.BadRequest(w, "Provide a name or styles to update.", r.URL.Path)
		return
	}
	if req.Name != nil {
		if msg := validateThemeName(*req.Name); msg != "" {
			problem.BadRequest(w, msg, r.URL.Path)
			return
		}
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if req.Styles != nil {
		if err := theme.ValidateStored(*req.Styles); err != nil {
			problem.BadRequest(w, err.Error(), r.URL.Path)
			return
		}
	}

	t, err := h.store.Update(r.Context(), sess.AccountID, id, req.Name, req.Styles)
	if err != nil {
		slog.Error("update theme failed", "account_id", sess.AccountID, "theme_id", id, "error", err)
		problem.InternalError(w, "could not update theme", r.URL.Path)
		return
	}
	if t == nil {
		problem.NotFound(w, "theme not found", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Delete removes a theme.
func (h *Themes) Delete(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := idParam(r)
	if !ok {
		problem.NotFound(w, "theme not found", r.URL.Path)
		return
	}

	deleted, err := h.store.Delete(r.Context(), sess.AccountID, id)
	if err != nil {
		slog.Error("delete theme failed", "account_id", sess.AccountID, "theme_id", id, "error", err)
		problem.InternalError(w, "could not delete theme", r.URL.Path)
		return
	}
	if !deleted {
		problem.NotFound(w, "theme not found", r.URL.Path)
		return
	}

	slog.Info("theme deleted", "account_id", sess.AccountID, "theme_id", id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Theme deleted successfully"})
}

// find loads the {id} theme for the caller, writing the error response
// when it cannot.
func (h *Themes) find(w http.ResponseWriter, r *http.Request) (*models.Theme, bool) {
	sess := middleware.SessionFromCtx(r.Context())
	id, ok := idParam(r)
	if !ok {
		problem.NotFound(w, "theme not found", r.URL.Path)
		return nil, false
	}

	t, err := h.store.FindByID(r.Context(), sess.AccountID, id)
	if err != nil {
		slog.Error("find theme failed", "account_id", sess.AccountID, "theme_id", id, "error", err)
		problem.InternalError(w, "could not load theme", r.URL.Path)
		return nil, false
	}
	if t == nil {
		problem.NotFound(w, "theme not found", r.URL.Path)
		return nil, false
	}
	return t, true
}
