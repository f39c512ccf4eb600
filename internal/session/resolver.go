package session

import (
	"context"
	"net/http"
	"strings"
)

// Resolver finds the account behind a request: a bearer token first, then
// the session cookie.
type Resolver struct {
	store  *Store
	tokens *TokenService
}

// NewResolver combines a cookie store and a token service. Either may be nil.
func NewResolver(store *Store, tokens *TokenService) *Resolver {
	return &Resolver{store: store, tokens: tokens}
}

// Resolve returns the session for r, or nil when the request is anonymous.
// An invalid bearer token counts as anonymous; only store failures error.
func (res *Resolver) Resolve(ctx context.Context, r *http.Request) (*Data, error) {
	if raw, ok := bearerToken(r); ok && res.tokens != nil && res.tokens.Enabled() {
		if data, err := res.tokens.Validate(raw); err == nil {
			return data, nil
		}
	}
	if res.store == nil {
		return nil, nil
	}
	return res.store.Get(ctx, r)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
