// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package generate runs one theme generation: the chat turn with its
// generateTheme tool loop, the nested streamed theme object and its
// validation, and the events sent to the client along the way.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"tweakgen/internal/ai"
	"tweakgen/internal/chat"
	"tweakgen/internal/metrics"
	"tweakgen/internal/quota"
	"tweakgen/internal/theme"
)

// DefaultStepBudget bounds the chat/tool rounds of one generation.
const DefaultStepBudget = 5

// DefaultThinkingBudget is the reasoning token budget for providers that
// support one.
const DefaultThinkingBudget = 128

// Sink receives the events of a generation in order. Implementations
// deliver them to the client; any error aborts the generation.
type Sink interface {
	TextDelta(delta string) error
	// ThemeStatus reports progress of one tool invocation. styles is the
	// accumulated object for streaming and ready, nil for processing.
	ThemeStatus(id string, status ThemeStatus, styles map[string]any) error
	// Metadata attaches the final theme to the assistant message.
	Metadata(styles theme.Styles) error
}

// Request is one generation call.
type Request struct {
	AccountID uuid.UUID
	ClientIP  string
	Messages  []chat.Message
}

// Result summarises a finished generation.
type Result struct {
	Text        string
	ThemeStyles *theme.Styles // nil when no valid theme was produced
	Usage       ai.Usage
	Steps       int
	Model       string
	// ToolErr is the last tool validation failure, if any. It does not
	// fail the generation.
	ToolErr error
}

// Admitter gates a request before any model work. *gate.Gate satisfies it.
// The reservation, when non-nil, is released if the run bills nothing.
type Admitter interface {
	Admit(ctx context.Context, accountID uuid.UUID, clientIP string) (*quota.Reservation, error)
}

// UsageRecorder persists billable usage. *usage.Recorder satisfies it.
type UsageRecorder interface {
	Record(ctx context.Context, accountID uuid.UUID, modelID string, u ai.Usage)
}

// ProviderSource resolves the provider and model per call. *ai.Registry
// satisfies it.
type ProviderSource interface {
	Active() (ai.Provider, error)
	ModelFor(role ai.ModelRole) string
}

// PromptChecker screens the latest user prompt. *ai.Registry satisfies it.
type PromptChecker interface {
	CheckPrompt(ctx context.Context, prompt string) (*ai.ModerationResult, error)
}

// FlaggedPromptError rejects a prompt the moderation check flagged.
type FlaggedPromptError struct {
	Categories []string
}

func (e *FlaggedPromptError) Error() string {
	return "prompt flagged by moderation: " + strings.Join(e.Categories, ", ")
}

// Config tunes an Orchestrator.
type Config struct {
	StepBudget     int
	ThinkingBudget int
}

// Orchestrator runs generations. It is safe for concurrent use; all
// per-request state lives in Run.
type Orchestrator struct {
	providers ProviderSource
	admitter  Admitter      // nil admits everything
	recorder  UsageRecorder // nil records nothing
	moderator PromptChecker // nil skips moderation
	images    *ai.ImageFetcher
	cfg       Config
}

// New creates an Orchestrator.
func New(providers ProviderSource, admitter Admitter, recorder UsageRecorder, cfg Config) *Orchestrator {
	if cfg.StepBudget <= 0 {
		cfg.StepBudget = DefaultStepBudget
	}
	if cfg.ThinkingBudget <= 0 {
		cfg.ThinkingBudget = DefaultThinkingBudget
	}
	return &Orchestrator{
		providers: providers,
		admitter:  admitter,
		recorder:  recorder,
		images:    ai.NewImageFetcher(),
		cfg:       cfg,
	}
}

// WithModerator enables prompt moderation after admission.
func (o *Orchestrator) WithModerator(m PromptChecker) *Orchestrator {
	o.moderator = m
	return o
}

// run carries the state of one Run call.
type run struct {
	o       *Orchestrator
	ctx     context.Context
	sink    Sink
	log     *slog.Logger
	state   State
	p       ai.Provider
	model   string
	turns   []ai.Message
	usage   ai.Usage
	styles  *theme.Styles
	toolErr error
}

// Run executes one generation and streams its events to sink. Gate
// rejections are returned unchanged and happen before any event is sent.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink Sink) (*Result, error) {
	r := &run{
		o:     o,
		ctx:   ctx,
		sink:  sink,
		log:   slog.With("account_id", req.AccountID),
		state: StateIdle,
	}

	if ctx.Err() != nil {
		r.transition(StateAborted)
		metrics.ObserveGeneration(metrics.OutcomeAborted)
		return nil, ErrAborted
	}

	if o.admitter != nil {
		slot, err := o.admitter.Admit(ctx, req.AccountID, req.ClientIP)
		if err != nil {
			r.log.Info("generation rejected", "error", err)
			metrics.ObserveGeneration(metrics.OutcomeRejected)
			return nil, err
		}
		// Unbilled runs (rejected prompt, failure before any tokens) give
		// the free request back.
		defer func() {
			if r.usage.IsZero() {
				slot.Release(context.WithoutCancel(ctx))
			}
		}()
	}
	r.transition(StateAdmitted)

	if err := r.moderate(req.Messages); err != nil {
		metrics.ObserveGeneration(metrics.OutcomeRejected)
		return nil, err
	}

	p, err := o.providers.Active()
	if err != nil {
		r.transition(StateFailed)
		metrics.ObserveGeneration(metrics.OutcomeFailed)
		return nil, fmt.Errorf("generate: %w", err)
	}
	r.p = p
	r.model = o.providers.ModelFor(ai.ModelThemeGeneration)

	r.turns = chat.Normalize(req.Messages)
	if len(r.turns) == 0 {
		r.transition(StateFailed)
		metrics.ObserveGeneration(metrics.OutcomeFailed)
		return nil, ErrNoMessages
	}

	// Remote images are downloaded once here, not on every model call.
	turns, err := o.images.Inline(ctx, r.turns)
	if err != nil {
		if ctx.Err() != nil {
			r.transition(StateAborted)
			metrics.ObserveGeneration(metrics.OutcomeAborted)
			return nil, ErrAborted
		}
		r.transition(StateFailed)
		metrics.ObserveGeneration(metrics.OutcomeFailed)
		r.log.Warn("attached image rejected", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrImage, err)
	}
	r.turns = turns

	res, err := r.loop()
	r.record(req.AccountID)

	switch {
	case err == nil:
		r.transition(StateCompleted)
		metrics.ObserveGeneration(metrics.OutcomeCompleted)
		r.log.Info("generation completed",
			"steps", res.Steps,
			"theme", res.ThemeStyles != nil,
			"prompt_tokens", res.Usage.PromptTokens,
			"completion_tokens", res.Usage.CompletionTokens,
		)
		return res, nil
	case errors.Is(err, ErrAborted):
		r.transition(StateAborted)
		metrics.ObserveGeneration(metrics.OutcomeAborted)
		r.log.Info("generation aborted by client")
		return nil, err
	default:
		r.transition(StateFailed)
		metrics.ObserveGeneration(metrics.OutcomeFailed)
		r.log.Error("generation failed", "error", err)
		return nil, err
	}
}

// moderate checks the latest prompt. Moderation outages fail open; the
// providers apply their own safety filters.
func (r *run) moderate(messages []chat.Message) error {
	if r.o.moderator == nil {
		return nil
	}
	prompt, ok := chat.LastUserPrompt(messages)
	if !ok || strings.TrimSpace(prompt.Content) == "" {
		return nil
	}
	res, err := r.o.moderator.CheckPrompt(r.ctx, prompt.Content)
	if err != nil {
		r.log.Warn("moderation check failed, allowing prompt", "error", err)
		return nil
	}
	if res.Safe {
		return nil
	}
	r.log.Warn("prompt flagged by moderation", "categories", strings.Join(res.Categories, ", "))
	return &FlaggedPromptError{Categories: res.Categories}
}

func (r *run) transition(s State) {
	r.log.Debug("generation state", "from", r.state, "to", s)
	r.state = s
}

// record bills whatever usage was reported, including on failure or abort.
func (r *run) record(accountID uuid.UUID) {
	if r.o.recorder == nil || r.usage.IsZero() {
		return
	}
	model := r.model
	if model == "" {
		model = r.p.Name()
	}
	r.o.recorder.Record(context.WithoutCancel(r.ctx), accountID, model, r.usage)
}

// loop drives the outer chat steps until the model stops calling tools or
// the step budget runs out.
func (r *run) loop() (*Result, error) {
	messages := append([]ai.Message(nil), r.turns...)
	tool := ai.Tool{Name: ToolName, Description: ToolDescription}
	var text strings.Builder
	steps := 0

	for steps < r.o.cfg.StepBudget {
		steps++
		r.transition(StateModelStreaming)

		resp, err := r.p.Stream(r.ctx, ai.ChatRequest{
			Model:          r.model,
			System:         SystemPrompt,
			Messages:       messages,
			Tools:          []ai.Tool{tool},
			ThinkingBudget: r.o.cfg.ThinkingBudget,
		}, func(c ai.Chunk) error {
			if r.ctx.Err() != nil {
				return r.ctx.Err()
			}
			if c.TextDelta == "" {
				return nil
			}
			if err := r.sink.TextDelta(c.TextDelta); err != nil {
				return fmt.Errorf("%w: %w", ErrTransport, err)
			}
			return nil
		})
		if err != nil {
			return nil, r.classify(err)
		}
		r.usage = r.usage.Add(resp.Usage)
		text.WriteString(resp.Text)

		if len(resp.ToolCalls) == 0 {
			break
		}

		assistant := ai.Message{Role: ai.RoleAssistant}
		if resp.Text != "" {
			assistant.Parts = append(assistant.Parts, ai.TextPart(resp.Text))
		}
		results := ai.Message{Role: ai.RoleTool}
		for _, call := range resp.ToolCalls {
			assistant.Parts = append(assistant.Parts, ai.Part{Type: ai.PartToolCall, ToolCall: &call})
			out, err := r.invoke(call)
			if err != nil {
				return nil, err
			}
			results.Parts = append(results.Parts, ai.Part{Type: ai.PartToolResult, ToolResult: out})
		}
		messages = append(messages, assistant, results)
	}

	if r.ctx.Err() != nil {
		return nil, ErrAborted
	}
	if r.styles != nil {
		if err := r.sink.Metadata(*r.styles); err != nil {
			return nil, r.classify(fmt.Errorf("%w: %w", ErrTransport, err))
		}
	}

	return &Result{
		Text:        text.String(),
		ThemeStyles: r.styles,
		Usage:       r.usage,
		Steps:       steps,
		Model:       r.model,
		ToolErr:     r.toolErr,
	}, nil
}

// invoke executes one tool call. Unknown tools and invalid themes produce
// an error result for the model to narrate; only provider, transport and
// abort failures are returned as errors.
func (r *run) invoke(call ai.ToolCall) (*ai.ToolResult, error) {
	if call.Name != ToolName {
		r.log.Warn("model called unknown tool", "tool", call.Name)
		return errorResult(call, fmt.Sprintf("unknown tool %q", call.Name)), nil
	}

	r.transition(StateToolInvoked)
	id := uuid.NewString()
	log := r.log.With("generation_id", id)
	if err := r.sink.ThemeStatus(id, StatusProcessing, nil); err != nil {
		return nil, r.classify(fmt.Errorf("%w: %w", ErrTransport, err))
	}

	r.transition(StateToolStreaming)
	acc := theme.NewAccumulator()
	obj, err := ai.StreamObject(r.ctx, r.p, ai.ChatRequest{
		Model:          r.model,
		System:         SystemPrompt,
		Messages:       r.turns,
		Schema:         theme.GenerationSchema(),
		SchemaName:     "theme_styles",
		ThinkingBudget: r.o.cfg.ThinkingBudget,
	}, func(partial map[string]any) error {
		if r.ctx.Err() != nil {
			return r.ctx.Err()
		}
		changed, err := acc.Apply(partial)
		if err != nil {
			log.Debug("dropped theme fragment", "error", err)
			return nil
		}
		if !changed {
			return nil
		}
		if err := r.sink.ThemeStatus(id, StatusStreaming, acc.Snapshot()); err != nil {
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
		return nil
	})
	if err != nil {
		return nil, r.classify(err)
	}
	r.usage = r.usage.Add(obj.Usage)

	r.transition(StateToolFinalizing)
	if obj.Object != nil {
		if _, err := acc.Apply(obj.Object); err != nil {
			log.Debug("dropped final theme object", "error", err)
		}
	}
	styles, err := acc.Final()
	if err != nil {
		log.Warn("generated theme failed validation", "error", err)
		r.toolErr = err
		return errorResult(call, "the generated theme was invalid: "+err.Error()), nil
	}
	warnUnknownFonts(log, styles)

	if err := r.sink.ThemeStatus(id, StatusReady, acc.Snapshot()); err != nil {
		return nil, r.classify(fmt.Errorf("%w: %w", ErrTransport, err))
	}
	r.styles = &styles
	r.toolErr = nil

	output, err := json.Marshal(styles)
	if err != nil {
		return nil, fmt.Errorf("generate: encode tool output: %w", err)
	}
	return &ai.ToolResult{CallID: call.ID, Name: call.Name, Output: output}, nil
}

// classify maps a failure from the provider or the sink to the error Run
// returns.
func (r *run) classify(err error) error {
	if r.ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return ErrAborted
	}
	if errors.Is(err, ErrTransport) {
		return err
	}
	var pe *ai.ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ai.ProviderError{Provider: r.p.Name(), Code: ai.ErrCodeBadResponse, Message: "generation", Err: err}
}

func errorResult(call ai.ToolCall, msg string) *ai.ToolResult {
	out, _ := json.Marshal(map[string]string{"error": msg})
	return &ai.ToolResult{CallID: call.ID, Name: call.Name, Output: out, IsError: true}
}

// warnUnknownFonts logs font families outside the catalog. The model may
// pick any Google Font, so this never rejects.
func warnUnknownFonts(log *slog.Logger, s theme.Styles) {
	for _, m := range theme.Modes {
		for _, token := range []string{"font-sans", "font-serif", "font-mono"} {
			stack := s.Props(m)[token]
			if stack == "" {
				continue
			}
			if _, _, ok := theme.ResolveFont(stack); !ok {
				log.Debug("font not in catalog", "mode", m, "token", token, "font", theme.PrimaryFamily(stack))
			}
		}
	}
}
