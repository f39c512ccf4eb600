// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"tweakgen/internal/chat"
	"tweakgen/internal/generate"
	"tweakgen/internal/middleware"
	"tweakgen/internal/problem"
	"tweakgen/internal/stream"
)

// Runner runs one generation. *generate.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req generate.Request, sink generate.Sink) (*generate.Result, error)
}

// Generate serves the theme generation stream.
type Generate struct {
	runner Runner
}

// NewGenerate creates a new Generate handler.
func NewGenerate(runner Runner) *Generate {
	return &Generate{runner: runner}
}

type generateRequest struct {
	Messages []chat.Message `json:"messages"`
}

// Theme runs a generation for the posted conversation and streams its
// events. Admission and quota rejections are answered as plain HTTP
// errors because nothing has been streamed yet.
func (h *Generate) Theme(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		problem.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if len(req.Messages) == 0 {
		problem.BadRequest(w, "messages are required", r.URL.Path)
		return
	}
	if prompt, ok := chat.LastUserPrompt(req.Messages); ok {
		if err := chat.Validate(*prompt); err != nil {
			problem.BadRequest(w, "Describe a theme, attach an image or mention a theme.", r.URL.Path)
			return
		}
	}

	sw := stream.NewWriter(w, r.URL.Path)
	res, err := h.runner.Run(r.Context(), generate.Request{
		AccountID: sess.AccountID,
		ClientIP:  middleware.ClientIP(r),
		Messages:  req.Messages,
	}, sw)
	if err != nil {
		sw.Fail(err)
		return
	}

	if err := sw.Finish(); err != nil && !errors.Is(err, stream.ErrClosed) {
		slog.Debug("could not finish generation stream", "message_id", sw.MessageID(), "error", err)
	}
	if res.ToolErr != nil {
		slog.Info("generation finished without a theme", "account_id", sess.AccountID, "reason", res.ToolErr)
	}
}
