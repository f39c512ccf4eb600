package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ---------- Helpers ----------

func testStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, false), mr
}

// requestWithCookies copies the cookies set on w into a new request.
func requestWithCookies(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

// =====================================================================
// Store
// =====================================================================

func TestSessionCreateAndGet(t *testing.T) {
	store, mr := testStore(t)
	ctx := context.Background()
	w := httptest.NewRecorder()

	data := &Data{AccountID: uuid.New(), Email: "dev@tweakgen.local"}
	id, err := store.Create(ctx, w, data)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(id) != idLength*2 {
		t.Errorf("session id length: got %d", len(id))
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly {
		t.Fatalf("cookie: got %+v", cookies)
	}
	if ttl := mr.TTL(keyPrefix + id); ttl != DefaultTTL {
		t.Errorf("TTL: got %v", ttl)
	}

	got, err := store.Get(ctx, requestWithCookies(w))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.AccountID != data.AccountID || got.Email != data.Email {
		t.Fatalf("Get: got %+v", got)
	}
}

func TestSessionGetWithoutCookie(t *testing.T) {
	store, _ := testStore(t)
	got, err := store.Get(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || got != nil {
		t.Fatalf("expected no session, got %+v, %v", got, err)
	}
}

func TestSessionExpired(t *testing.T) {
	store, mr := testStore(t)
	w := httptest.NewRecorder()
	store.Create(context.Background(), w, &Data{AccountID: uuid.New()})

	mr.FastForward(DefaultTTL + time.Second)

	got, err := store.Get(context.Background(), requestWithCookies(w))
	if err != nil || got != nil {
		t.Fatalf("expected expired session to be nil, got %+v, %v", got, err)
	}
}

func TestSessionGetSlidesExpiry(t *testing.T) {
	store, mr := testStore(t)
	ctx := context.Background()
	w := httptest.NewRecorder()
	id, err := store.Create(ctx, w, &Data{AccountID: uuid.New()})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mr.FastForward(DefaultTTL - time.Hour)
	if got, err := store.Get(ctx, requestWithCookies(w)); err != nil || got == nil {
		t.Fatalf("Get before expiry: %+v, %v", got, err)
	}
	if ttl := mr.TTL(keyPrefix + id); ttl != DefaultTTL {
		t.Errorf("TTL after Get: got %v, want %v", ttl, DefaultTTL)
	}

	// Past the original expiry, still inside the refreshed one.
	mr.FastForward(2 * time.Hour)
	if got, _ := store.Get(ctx, requestWithCookies(w)); got == nil {
		t.Error("session should survive past its original expiry after use")
	}
}

func TestSessionDestroy(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	w := httptest.NewRecorder()
	store.Create(ctx, w, &Data{AccountID: uuid.New()})
	r := requestWithCookies(w)

	dw := httptest.NewRecorder()
	if err := store.Destroy(ctx, dw, r); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if c := dw.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("expected expiring cookie, got %+v", c)
	}

	got, _ := store.Get(ctx, r)
	if got != nil {
		t.Error("session should be gone after Destroy")
	}
}

// =====================================================================
// Tokens
// =====================================================================

func TestTokenIssueAndValidate(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	id := uuid.New()

	raw, expires, err := svc.Issue(id, "a@b.c")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expiry should be in the future: %v", expires)
	}

	data, err := svc.Validate(raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if data.AccountID != id || data.Email != "a@b.c" {
		t.Errorf("claims: got %+v", data)
	}
}

func TestTokenValidateRejects(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	other := NewTokenService("other-secret", time.Hour)
	foreign, _, _ := other.Issue(uuid.New(), "")

	expiredClaims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, expiredClaims).SignedString([]byte("test-secret"))

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "not-a-uuid",
		Issuer:  tokenIssuer,
	}}).SignedString([]byte("test-secret"))

	tests := map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": foreign,
		"expired":      expired,
		"bad subject":  badSubject,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Validate(raw); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTokenServiceDisabledWithoutSecret(t *testing.T) {
	svc := NewTokenService("", time.Hour)
	if svc.Enabled() {
		t.Fatal("service without secret should be disabled")
	}
	if _, _, err := svc.Issue(uuid.New(), ""); err == nil {
		t.Error("Issue should fail without a secret")
	}
}

// =====================================================================
// Resolver
// =====================================================================

func TestResolver(t *testing.T) {
	store, _ := testStore(t)
	tokens := NewTokenService("test-secret", time.Hour)
	res := NewResolver(store, tokens)
	ctx := context.Background()

	t.Run("bearer token", func(t *testing.T) {
		id := uuid.New()
		raw, _, _ := tokens.Issue(id, "")
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+raw)

		got, err := res.Resolve(ctx, r)
		if err != nil || got == nil || got.AccountID != id {
			t.Fatalf("got %+v, %v", got, err)
		}
	})

	t.Run("cookie", func(t *testing.T) {
		id := uuid.New()
		w := httptest.NewRecorder()
		store.Create(ctx, w, &Data{AccountID: id})

		got, err := res.Resolve(ctx, requestWithCookies(w))
		if err != nil || got == nil || got.AccountID != id {
			t.Fatalf("got %+v, %v", got, err)
		}
	})

	t.Run("invalid bearer is anonymous", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer nope")
		got, err := res.Resolve(ctx, r)
		if err != nil || got != nil {
			t.Fatalf("got %+v, %v", got, err)
		}
	})
}
