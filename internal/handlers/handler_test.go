// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for the handler
// tests: in-memory stores, a session-injecting router and fake models.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tweakgen/internal/ai"
	"tweakgen/internal/middleware"
	"tweakgen/internal/models"
	"tweakgen/internal/session"
	"tweakgen/internal/theme"
)

// ---------- Helpers ----------

// testSession returns a fresh authenticated caller.
func testSession() *session.Data {
	return &session.Data{AccountID: uuid.New(), Email: "test@tweakgen.local"}
}

// withSession injects sess into every request the router serves, standing
// in for LoadSession.
func withSession(sess *session.Data) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess != nil {
				r = r.WithContext(middleware.WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// do sends a request with an optional JSON body through h.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			reader = strings.NewReader(s)
		} else {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal body: %v", err)
			}
			reader = strings.NewReader(string(b))
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// decodeBody unmarshals a JSON response body.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
}

// memThemeStore is an in-memory ThemeStore.
type memThemeStore struct {
	mu     sync.Mutex
	themes map[uuid.UUID]models.Theme
	err    error
}

func newMemThemeStore() *memThemeStore {
	return &memThemeStore{themes: map[uuid.UUID]models.Theme{}}
}

func (s *memThemeStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []models.Theme{}
	for _, t := range s.themes {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memThemeStore) FindByID(_ context.Context, userID, id uuid.UUID) (*models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.themes[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	return &t, nil
}

func (s *memThemeStore) Create(_ context.Context, userID uuid.UUID, name string, styles theme.Styles) (*models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	now := time.Now().UTC()
	t := models.Theme{ID: uuid.New(), UserID: userID, Name: name, Styles: styles, CreatedAt: now, UpdatedAt: now}
	s.themes[t.ID] = t
	return &t, nil
}

func (s *memThemeStore) Update(_ context.Context, userID, id uuid.UUID, name *string, styles *theme.Styles) (*models.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.themes[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	if name != nil {
		t.Name = *name
	}
	if styles != nil {
		t.Styles = *styles
	}
	t.UpdatedAt = time.Now().UTC()
	s.themes[id] = t
	return &t, nil
}

func (s *memThemeStore) Delete(_ context.Context, userID, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	t, ok := s.themes[id]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(s.themes, id)
	return true, nil
}

// mockAIProvider streams a fixed text reply.
type mockAIProvider struct {
	name   string
	deltas []string
	err    error
	usage  ai.Usage

	mu   sync.Mutex
	reqs []ai.ChatRequest
}

func (m *mockAIProvider) Name() string { return m.name }

func (m *mockAIProvider) Stream(ctx context.Context, req ai.ChatRequest, fn ai.StreamFunc) (*ai.Response, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	var text strings.Builder
	for _, d := range m.deltas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text.WriteString(d)
		if err := fn(ai.Chunk{TextDelta: d}); err != nil {
			return nil, err
		}
	}
	return &ai.Response{Text: text.String(), Model: req.Model, Usage: m.usage}, nil
}

func (m *mockAIProvider) requests() []ai.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.ChatRequest(nil), m.reqs...)
}

// streamEvents returns the JSON events of a UI message stream body and
// whether it ended with [DONE].
func streamEvents(t *testing.T, body string) ([]map[string]any, bool) {
	t.Helper()
	var events []map[string]any
	done := false
	for _, frame := range strings.Split(body, "\n\n") {
		data, ok := strings.CutPrefix(strings.TrimSpace(frame), "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			done = true
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			t.Fatalf("bad event %q: %v", data, err)
		}
		events = append(events, ev)
	}
	return events, done
}

// eventTypes lists the type of each event.
func eventTypes(events []map[string]any) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i], _ = ev["type"].(string)
	}
	return out
}

// newRouter mounts routes on a chi router behind withSession.
func newRouter(sess *session.Data, mount func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(withSession(sess))
	mount(r)
	return r
}

// =====================================================================
// Health
// =====================================================================

func TestHealth(t *testing.T) {
	rr := do(t, http.HandlerFunc(Health), http.MethodGet, "/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var body map[string]string
	decodeBody(t, rr, &body)
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want ok", body["status"])
	}
}
