package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tweakgen/internal/middleware"
	"tweakgen/internal/models"
	"tweakgen/internal/problem"
)

const (
	defaultUsageLimit = 20
	maxUsageLimit     = 100
)

// UsageHistory lists billed generations. *store.AIUsageStore satisfies it.
type UsageHistory interface {
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AIUsage, error)
}

// Usage serves the caller's generation history.
type Usage struct {
	history UsageHistory
}

// NewUsage creates a new Usage handler.
func NewUsage(history UsageHistory) *Usage {
	return &Usage{history: history}
}

type usageEntry struct {
	ModelID          string    `json:"modelId"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	CreatedAt        time.Time `json:"createdAt"`
}

// List returns the most recent generations, newest first. ?limit= accepts
// 1 to 100.
func (h *Usage) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	limit := defaultUsageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxUsageLimit {
			problem.BadRequest(w, "limit must be between 1 and 100", r.URL.Path)
			return
		}
		limit = n
	}

	rows, err := h.history.RecentByUser(r.Context(), sess.AccountID, limit)
	if err != nil {
		slog.Error("usage history lookup failed", "account_id", sess.AccountID, "error", err)
		problem.InternalError(w, "could not load usage", r.URL.Path)
		return
	}

	entries := make([]usageEntry, 0, len(rows))
	for i := range rows {
		u := &rows[i]
		entries = append(entries, usageEntry{
			ModelID:          u.ModelID,
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens(),
			CreatedAt:        u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": entries})
}
