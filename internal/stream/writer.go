// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package stream writes generation events to the client as a UI message
// stream: server-sent events carrying one JSON object each, terminated by
// a [DONE] sentinel.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"tweakgen/internal/ai"
	"tweakgen/internal/gate"
	"tweakgen/internal/generate"
	"tweakgen/internal/problem"
	"tweakgen/internal/theme"
)

// Event types on the wire.
const (
	EventStart       = "start"
	EventTextStart   = "text-start"
	EventTextDelta   = "text-delta"
	EventTextEnd     = "text-end"
	EventThemeStatus = "data-theme-styles-status"
	EventMetadata    = "message-metadata"
	EventFinish      = "finish"
	EventError       = "error"
)

// StatusClientClosed is the non-standard status for requests the client
// aborted.
const StatusClientClosed = 499

var _ generate.Sink = (*Writer)(nil)

// ErrStatusAfterReady rejects a status event for a generation that has
// already reported ready.
var ErrStatusAfterReady = errors.New("stream: status after ready")

// ErrClosed rejects events after Finish or Fail.
var ErrClosed = errors.New("stream: writer closed")

// Writer implements generate.Sink over an http.ResponseWriter. Headers are
// committed with the first event, so errors raised before it can still be
// sent as ordinary HTTP responses. Not safe for concurrent use.
type Writer struct {
	w         http.ResponseWriter
	flusher   http.Flusher
	instance  string
	messageID string
	committed bool
	closed    bool
	textID    string // open text block, "" when none
	ready     map[string]bool
}

// NewWriter creates a Writer. instance is the request path reported in
// problem responses.
func NewWriter(w http.ResponseWriter, instance string) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{
		w:         w,
		flusher:   f,
		instance:  instance,
		messageID: uuid.NewString(),
		ready:     map[string]bool{},
	}
}

// MessageID is the id announced in the start event.
func (s *Writer) MessageID() string { return s.messageID }

// Committed reports whether the response headers have been sent.
func (s *Writer) Committed() bool { return s.committed }

// TextDelta appends narration text, opening a text block when needed.
func (s *Writer) TextDelta(delta string) error {
	if err := s.begin(); err != nil {
		return err
	}
	if s.textID == "" {
		s.textID = uuid.NewString()
		if err := s.send(map[string]any{"type": EventTextStart, "id": s.textID}); err != nil {
			return err
		}
	}
	return s.send(map[string]any{"type": EventTextDelta, "id": s.textID, "delta": delta})
}

// ThemeStatus reports progress of one generation id.
func (s *Writer) ThemeStatus(id string, status generate.ThemeStatus, styles map[string]any) error {
	if s.ready[id] {
		return fmt.Errorf("%w: %s", ErrStatusAfterReady, id)
	}
	if err := s.begin(); err != nil {
		return err
	}
	if err := s.endText(); err != nil {
		return err
	}
	data := map[string]any{"status": status}
	if styles != nil {
		data["themeStyles"] = styles
	}
	if err := s.send(map[string]any{"id": id, "type": EventThemeStatus, "data": data}); err != nil {
		return err
	}
	if status == generate.StatusReady {
		s.ready[id] = true
	}
	return nil
}

// Metadata patches the assistant message with the final theme.
func (s *Writer) Metadata(styles theme.Styles) error {
	if err := s.begin(); err != nil {
		return err
	}
	if err := s.endText(); err != nil {
		return err
	}
	return s.send(map[string]any{
		"type":            EventMetadata,
		"messageMetadata": map[string]any{"themeStyles": styles},
	})
}

// Finish closes any open text block and terminates the stream.
func (s *Writer) Finish() error {
	if err := s.begin(); err != nil {
		return err
	}
	if err := s.endText(); err != nil {
		return err
	}
	if err := s.send(map[string]any{"type": EventFinish}); err != nil {
		return err
	}
	return s.done()
}

// Fail terminates the request with err. Before the first event it writes
// an HTTP error response; afterwards an abort closes the stream silently
// and any other failure is reported as an error event.
func (s *Writer) Fail(err error) {
	if s.closed {
		return
	}
	if !s.committed {
		s.closed = true
		s.writeErrorResponse(err)
		return
	}
	if errors.Is(err, generate.ErrAborted) {
		s.closed = true
		return
	}
	_ = s.endText()
	if sendErr := s.send(map[string]any{"type": EventError, "errorText": errorText(err)}); sendErr != nil {
		slog.Debug("could not deliver stream error", "error", sendErr)
		s.closed = true
		return
	}
	_ = s.done()
}

func (s *Writer) begin() error {
	if s.closed {
		return ErrClosed
	}
	if s.committed {
		return nil
	}
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("x-vercel-ai-ui-message-stream", "v1")
	s.w.WriteHeader(http.StatusOK)
	s.committed = true
	return s.send(map[string]any{"type": EventStart, "messageId": s.messageID})
}

func (s *Writer) endText() error {
	if s.textID == "" {
		return nil
	}
	id := s.textID
	s.textID = ""
	return s.send(map[string]any{"type": EventTextEnd, "id": id})
}

func (s *Writer) send(event map[string]any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("stream encode: %w", err)
	}
	return s.write("data: " + string(payload) + "\n\n")
}

func (s *Writer) done() error {
	err := s.write("data: [DONE]\n\n")
	s.closed = true
	return err
}

func (s *Writer) write(frame string) error {
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return fmt.Errorf("stream write: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *Writer) writeErrorResponse(err error) {
	var rl *gate.RateLimitError
	var sub *gate.SubscriptionRequiredError
	var pe *ai.ProviderError
	var flagged *generate.FlaggedPromptError

	switch {
	case errors.As(err, &rl):
		for k, v := range rl.Headers() {
			s.w.Header().Set(k, v)
		}
		s.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		s.w.WriteHeader(http.StatusTooManyRequests)
		_, _ = s.w.Write([]byte("Rate limit exceeded. Please try again later."))
	case errors.As(err, &sub):
		problem.SubscriptionRequired(s.w, sub.Error(), s.instance, sub.RequestsRemaining)
	case errors.Is(err, generate.ErrAborted):
		s.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		s.w.WriteHeader(StatusClientClosed)
		_, _ = s.w.Write([]byte("Request aborted by user"))
	case errors.As(err, &flagged):
		problem.PromptFlagged(s.w,
			"Your prompt was flagged for: "+strings.Join(flagged.Categories, ", ")+". Please reformulate your request and try again.",
			s.instance, flagged.Categories)
	case errors.Is(err, ai.ErrRemoteImage):
		problem.BadRequest(s.w, ai.ErrRemoteImage.Error(), s.instance)
	case errors.Is(err, generate.ErrImage):
		problem.BadRequest(s.w, "an attached image could not be downloaded", s.instance)
	case errors.Is(err, generate.ErrNoMessages):
		problem.BadRequest(s.w, "no prompt, image or mention to generate from", s.instance)
	case errors.As(err, &pe):
		problem.BadGateway(s.w, errorText(err), s.instance)
	default:
		problem.InternalError(s.w, "theme generation failed", s.instance)
	}
}

// errorText is the client-facing description of a mid-stream failure.
// Provider messages are not echoed; they may contain request details.
func errorText(err error) string {
	switch {
	case ai.IsRateLimitError(err):
		return "The AI provider is rate limiting requests. Please try again shortly."
	case ai.IsAuthenticationError(err):
		return "The AI provider rejected the server's credentials."
	default:
		var pe *ai.ProviderError
		if errors.As(err, &pe) {
			return "The AI provider failed to complete the request."
		}
		return "Theme generation failed. Please try again."
	}
}
