package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tweakgen/internal/middleware"
	"tweakgen/internal/models"
	"tweakgen/internal/problem"
	"tweakgen/internal/quota"
	"tweakgen/internal/session"
)

// UserStore looks up accounts. *store.UserStore satisfies it.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
}

// SessionStore manages cookie sessions. *session.Store satisfies it.
type SessionStore interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// TokenIssuer signs bearer tokens. *session.TokenService satisfies it.
type TokenIssuer interface {
	Enabled() bool
	Issue(accountID uuid.UUID, email string) (string, time.Time, error)
}

// QuotaSource reports an account's remaining allowance. *quota.Checker
// satisfies it.
type QuotaSource interface {
	Check(ctx context.Context, accountID uuid.UUID) (quota.Status, error)
	Invalidate(ctx context.Context, accountID uuid.UUID)
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	users    UserStore
	sessions SessionStore
	tokens   TokenIssuer // nil disables bearer tokens
	quota    QuotaSource
}

// NewAuth creates a new Auth handler group.
func NewAuth(users UserStore, sessions SessionStore, tokens TokenIssuer, q QuotaSource) *Auth {
	return &Auth{users: users, sessions: sessions, tokens: tokens, quota: q}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccountID   uuid.UUID  `json:"accountId"`
	Email       string     `json:"email"`
	AccessToken string     `json:"accessToken,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}

// Login checks the credentials, sets the session cookie and, when token
// signing is configured, also returns a bearer token.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if req.Email == "" || req.Password == "" {
		problem.BadRequest(w, "email and password are required", r.URL.Path)
		return
	}

	user, err := a.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		problem.InternalError(w, "An unexpected error occurred.", r.URL.Path)
		return
	}

	// Validate credentials.
	if user == nil || !a.users.CheckPassword(user, req.Password) {
		slog.Info("login failed", "ip", middleware.ClientIP(r))
		problem.Unauthorized(w, "Invalid email or password.", r.URL.Path)
		return
	}

	_, err = a.sessions.Create(r.Context(), w, &session.Data{
		AccountID: user.ID,
		Email:     user.Email,
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		problem.InternalError(w, "An unexpected error occurred.", r.URL.Path)
		return
	}

	// A plan bought since the last visit applies from this sign-in on.
	if a.quota != nil {
		a.quota.Invalidate(r.Context(), user.ID)
	}

	resp := loginResponse{AccountID: user.ID, Email: user.Email}
	if a.tokens != nil && a.tokens.Enabled() {
		token, expires, err := a.tokens.Issue(user.ID, user.Email)
		if err != nil {
			slog.Error("token issue failed", "account_id", user.ID, "error", err)
			problem.InternalError(w, "An unexpected error occurred.", r.URL.Path)
			return
		}
		resp.AccessToken = token
		resp.ExpiresAt = &expires
	}

	slog.Info("login succeeded", "account_id", user.ID)
	writeJSON(w, http.StatusOK, resp)
}

// Logout destroys the cookie session. Bearer tokens simply expire.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

type accountResponse struct {
	AccountID uuid.UUID    `json:"accountId"`
	Email     string       `json:"email"`
	Quota     quota.Status `json:"quota"`
}

// Account returns the caller's identity and generation allowance.
func (a *Auth) Account(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	status, err := a.quota.Check(r.Context(), sess.AccountID)
	if err != nil {
		slog.Error("quota lookup failed", "account_id", sess.AccountID, "error", err)
		problem.InternalError(w, "could not load account status", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse{AccountID: sess.AccountID, Email: sess.Email, Quota: status})
}
