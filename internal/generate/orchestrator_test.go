// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"tweakgen/internal/ai"
	"tweakgen/internal/chat"
	"tweakgen/internal/quota"
	"tweakgen/internal/theme"
)

// ==========================================================================
// Happy path
// ==========================================================================

func TestRunGeneratesTheme(t *testing.T) {
	p := &scriptedProvider{
		steps: []scriptedStep{
			{
				text:  []string{"I'll make ", "a calm blue theme."},
				calls: []ai.ToolCall{{ID: "call-1", Name: ToolName, Arguments: json.RawMessage("{}")}},
				usage: ai.Usage{PromptTokens: 100, CompletionTokens: 10},
			},
			{
				text:  []string{"Done: soft blues throughout."},
				usage: ai.Usage{PromptTokens: 150, CompletionTokens: 8},
			},
		},
		object:      chunked(validThemeJSON(t), 40),
		objectUsage: ai.Usage{PromptTokens: 90, CompletionTokens: 400},
	}
	rec := &fakeRecorder{}
	o := New(&fakeSource{p: p, model: "test-model"}, nil, rec, Config{})
	sink := &fakeSink{}

	res, err := o.Run(context.Background(), testRequest(), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Text != "I'll make a calm blue theme.Done: soft blues throughout." {
		t.Errorf("text = %q", res.Text)
	}
	if res.Steps != 2 {
		t.Errorf("steps = %d, want 2", res.Steps)
	}
	if res.ThemeStyles == nil || res.ThemeStyles.Light["primary"] != "#1d4ed8" {
		t.Fatalf("theme styles = %+v", res.ThemeStyles)
	}
	if _, ok := res.ThemeStyles.Light["spacing"]; ok {
		t.Error("generated theme must not carry spacing")
	}
	wantUsage := ai.Usage{PromptTokens: 340, CompletionTokens: 418}
	if res.Usage != wantUsage {
		t.Errorf("usage = %+v, want %+v", res.Usage, wantUsage)
	}

	// Event order: text, processing, streaming..., ready, text, metadata.
	statuses := sink.statuses()
	if len(statuses) < 3 {
		t.Fatalf("statuses = %v, want processing, streaming..., ready", statuses)
	}
	if statuses[0] != StatusProcessing || statuses[len(statuses)-1] != StatusReady {
		t.Errorf("statuses = %v", statuses)
	}
	for _, s := range statuses[1 : len(statuses)-1] {
		if s != StatusStreaming {
			t.Errorf("middle status = %q, want streaming", s)
		}
	}
	ids := sink.statusIDs()
	for _, id := range ids {
		if id != ids[0] {
			t.Errorf("status ids differ: %v", ids)
			break
		}
	}
	if _, err := uuid.Parse(ids[0]); err != nil {
		t.Errorf("generation id %q is not a uuid", ids[0])
	}
	if sink.metadata == nil || sink.metadata.Dark["background"] != "#0b1120" {
		t.Errorf("metadata = %+v", sink.metadata)
	}
	if sink.kinds[len(sink.kinds)-1] != "metadata" {
		t.Errorf("last event = %q, want metadata", sink.kinds[len(sink.kinds)-1])
	}

	// Usage is recorded once with the summed total.
	if len(rec.calls) != 1 || rec.calls[0].usage != wantUsage || rec.calls[0].model != "test-model" {
		t.Errorf("recorder calls = %+v", rec.calls)
	}

	// The tool round trip carries the theme back to the model.
	second := p.chatRequests()[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != ai.RoleTool || last.Parts[0].ToolResult == nil || last.Parts[0].ToolResult.IsError {
		t.Fatalf("tool result turn = %+v", last)
	}
	if !strings.Contains(string(last.Parts[0].ToolResult.Output), "#1d4ed8") {
		t.Error("tool result does not carry the generated theme")
	}
}

func TestRunSendsToolAndSchema(t *testing.T) {
	p := &scriptedProvider{
		steps:  []scriptedStep{{calls: []ai.ToolCall{{ID: "c", Name: ToolName}}}, {}},
		object: []string{validThemeJSON(t)},
	}
	o := New(&fakeSource{p: p, model: "m"}, nil, nil, Config{})
	if _, err := o.Run(context.Background(), testRequest(), &fakeSink{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	first := p.chatRequests()[0]
	if first.System != SystemPrompt || len(first.Tools) != 1 || first.Tools[0].Name != ToolName {
		t.Errorf("chat request: system set=%v tools=%+v", first.System == SystemPrompt, first.Tools)
	}
	if first.ThinkingBudget != DefaultThinkingBudget {
		t.Errorf("thinking budget = %d", first.ThinkingBudget)
	}

	objReq := p.objectRequests()[0]
	if objReq.Schema == nil || objReq.System != SystemPrompt {
		t.Error("object request must carry the schema and system prompt")
	}
	if len(objReq.Messages) != len(first.Messages) {
		t.Errorf("object request turns = %d, want %d", len(objReq.Messages), len(first.Messages))
	}
	props := objReq.Schema["properties"].(map[string]any)["light"].(map[string]any)["properties"].(map[string]any)
	if _, ok := props["spacing"]; ok {
		t.Error("schema must not offer spacing")
	}
}

func TestRunTextOnly(t *testing.T) {
	p := &scriptedProvider{steps: []scriptedStep{{text: []string{"Which colors do you like?"}, usage: ai.Usage{PromptTokens: 5}}}}
	sink := &fakeSink{}
	res, err := New(&fakeSource{p: p}, nil, nil, Config{}).Run(context.Background(), testRequest(), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ThemeStyles != nil || res.Steps != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(sink.statuses()) != 0 || sink.metadata != nil {
		t.Error("text-only turn must not emit theme events")
	}
}

// ==========================================================================
// Validation
// ==========================================================================

func TestRunDropsInvalidFragments(t *testing.T) {
	bad := `{"light":{"primary":"#111111","bogus-token":"x"`
	p := &scriptedProvider{
		steps:  []scriptedStep{{calls: []ai.ToolCall{{ID: "c", Name: ToolName}}}, {}},
		object: append([]string{bad}, "}}"),
	}
	sink := &fakeSink{}
	res, err := New(&fakeSource{p: p}, nil, nil, Config{}).Run(context.Background(), testRequest(), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, snap := range sink.snapshots() {
		if light, ok := snap["light"].(map[string]any); ok {
			if _, bad := light["bogus-token"]; bad {
				t.Fatal("rejected fragment leaked into a streamed snapshot")
			}
		}
	}
	var verr *theme.ValidationError
	if !errors.As(res.ToolErr, &verr) {
		t.Fatalf("ToolErr = %v, want *theme.ValidationError", res.ToolErr)
	}
	if res.ThemeStyles != nil {
		t.Error("invalid final must not attach a theme")
	}
}

func TestRunInvalidFinalIsToolError(t *testing.T) {
	partial := `{"light":{"primary":"#111111"},"dark":{"primary":"#eeeeee"}}`
	p := &scriptedProvider{
		steps: []scriptedStep{
			{calls: []ai.ToolCall{{ID: "c", Name: ToolName}}},
			{text: []string{"Sorry, that did not work."}},
		},
		object: []string{partial},
	}
	sink := &fakeSink{}
	res, err := New(&fakeSource{p: p}, nil, nil, Config{}).Run(context.Background(), testRequest(), sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ToolErr == nil || res.ThemeStyles != nil {
		t.Errorf("result = %+v", res)
	}
	for _, s := range sink.statuses() {
		if s == StatusReady {
			t.Error("ready must not be sent for an invalid theme")
		}
	}
	if sink.metadata != nil {
		t.Error("metadata must not be sent without a theme")
	}

	last := p.chatRequests()[1].Messages
	result := last[len(last)-1].Parts[0].ToolResult
	if result == nil || !result.IsError || !strings.Contains(string(result.Output), "invalid") {
		t.Errorf("tool result = %+v", result)
	}
}

func TestRunUnknownTool(t *testing.T) {
	p := &scriptedProvider{steps: []scriptedStep{{calls: []ai.ToolCall{{ID: "c", Name: "deleteEverything"}}}, {}}}
	sink := &fakeSink{}
	if _, err := New(&fakeSource{p: p}, nil, nil, Config{}).Run(context.Background(), testRequest(), sink); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(p.objectRequests()) != 0 {
		t.Error("unknown tool must not start a theme stream")
	}
}

// ==========================================================================
// Budget, failure, abort
// ==========================================================================

func TestRunStepBudget(t *testing.T) {
	steps := make([]scriptedStep, 10)
	for i := range steps {
		steps[i] = scriptedStep{calls: []ai.ToolCall{{ID: "c", Name: "noop"}}}
	}
	p := &scriptedProvider{steps: steps}
	res, err := New(&fakeSource{p: p}, nil, nil, Config{StepBudget: 3}).Run(context.Background(), testRequest(), &fakeSink{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Steps != 3 || len(p.chatRequests()) != 3 {
		t.Errorf("steps = %d, calls = %d, want 3", res.Steps, len(p.chatRequests()))
	}
}

func TestRunProviderError(t *testing.T) {
	perr := &ai.ProviderError{Provider: "fake", Code: ai.ErrCodeServerError, Status: 500, Message: "boom"}
	p := &scriptedProvider{steps: []scriptedStep{{err: perr}}}
	rec := &fakeRecorder{}
	_, err := New(&fakeSource{p: p}, nil, rec, Config{}).Run(context.Background(), testRequest(), &fakeSink{})

	var got *ai.ProviderError
	if !errors.As(err, &got) || got.Status != 500 {
		t.Fatalf("err = %v, want *ai.ProviderError", err)
	}
	if len(rec.calls) != 0 {
		t.Error("no usage was reported, nothing should be recorded")
	}
}

func TestRunPlainErrorBecomesProviderError(t *testing.T) {
	p := &scriptedProvider{steps: []scriptedStep{{err: errors.New("decode failure")}}}
	_, err := New(&fakeSource{p: p}, nil, nil, Config{}).Run(context.Background(), testRequest(), &fakeSink{})
	var got *ai.ProviderError
	if !errors.As(err, &got) || got.Code != ai.ErrCodeBadResponse {
		t.Fatalf("err = %v, want bad_response provider error", err)
	}
}

func TestRunSinkFailure(t *testing.T) {
	p := &scriptedProvider{steps: []scriptedStep{{text: []string{"hello"}}}}
	sink := &fakeSink{failOn: "text"}
	_, err := New(&fakeSource{p: p}, nil, nil, Config{}).Run(context.Background(), testRequest(), sink)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestRunAbortDuringToolStream(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &scriptedProvider{
		steps:       []scriptedStep{{calls: []ai.ToolCall{{ID: "c", Name: ToolName}}, usage: ai.Usage{PromptTokens: 50}}},
		object:      chunked(validThemeJSON(t), 30),
		cancelAfter: 3,
		cancel:      cancel,
	}
	rec := &fakeRecorder{}
	sink := &fakeSink{}
	_, err := New(&fakeSource{p: p}, nil, rec, Config{}).Run(ctx, testRequest(), sink)

	if !errors.Is(err, ErrAborted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want ErrAborted wrapping context.Canceled", err)
	}
	for _, s := range sink.statuses() {
		if s == StatusReady {
			t.Error("ready must not follow an abort")
		}
	}
	if sink.metadata != nil {
		t.Error("metadata must not follow an abort")
	}
	// Usage already reported by the first step is still billed.
	if len(rec.calls) != 1 || rec.calls[0].usage.PromptTokens != 50 {
		t.Errorf("recorder calls = %+v", rec.calls)
	}
}

func TestRunAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &scriptedProvider{}
	_, err := New(&fakeSource{p: p}, nil, nil, Config{}).Run(ctx, testRequest(), &fakeSink{})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if len(p.chatRequests()) != 0 {
		t.Error("no model call expected after cancellation")
	}
}

func TestRunRejectedByAdmitter(t *testing.T) {
	rejection := errors.New("rate limited")
	p := &scriptedProvider{}
	sink := &fakeSink{}
	_, err := New(&fakeSource{p: p}, admitFunc(func() error { return rejection }), nil, Config{}).
		Run(context.Background(), testRequest(), sink)
	if !errors.Is(err, rejection) {
		t.Fatalf("err = %v, want the admitter's error unchanged", err)
	}
	if len(p.chatRequests()) != 0 || len(sink.kinds) != 0 {
		t.Error("a rejected request must do no model work and emit nothing")
	}
}

func TestRunReleasesUnbilledReservation(t *testing.T) {
	checker := quota.NewChecker(usedCount(0), freeAccount{}, nil, 1)
	flagged := moderatorFunc(func(string) (*ai.ModerationResult, error) {
		return &ai.ModerationResult{Categories: []string{"violence"}}, nil
	})
	o := New(&fakeSource{p: &scriptedProvider{}}, reserveAdmitter{checker}, nil, Config{}).WithModerator(flagged)
	req := testRequest()

	for i := 0; i < 2; i++ {
		_, err := o.Run(context.Background(), req, &fakeSink{})
		var fe *FlaggedPromptError
		if !errors.As(err, &fe) {
			t.Fatalf("run %d: err = %v, want *FlaggedPromptError (slot not released?)", i+1, err)
		}
	}
	st, err := checker.Check(context.Background(), req.AccountID)
	if err != nil || st.RequestsRemaining != 1 {
		t.Errorf("after unbilled runs: %+v, %v", st, err)
	}
}

func TestRunKeepsBilledReservation(t *testing.T) {
	checker := quota.NewChecker(usedCount(0), freeAccount{}, nil, 1)
	p := &scriptedProvider{steps: []scriptedStep{{
		text:  []string{"Sure."},
		usage: ai.Usage{PromptTokens: 10, CompletionTokens: 2},
	}}}
	o := New(&fakeSource{p: p}, reserveAdmitter{checker}, &fakeRecorder{}, Config{})
	req := testRequest()

	if _, err := o.Run(context.Background(), req, &fakeSink{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, err := o.Run(context.Background(), req, &fakeSink{})
	if err == nil || !strings.Contains(err.Error(), "free limit") {
		t.Fatalf("second run: err = %v, want the quota rejection", err)
	}
}

func TestRunRejectsNonPublicImage(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	req := testRequest()
	req.Messages[0].Metadata.PromptData.Images = []chat.Image{{URL: srv.URL + "/latest/meta-data"}}
	p := &scriptedProvider{}

	_, err := New(&fakeSource{p: p}, nil, nil, Config{}).Run(context.Background(), req, &fakeSink{})
	if !errors.Is(err, ErrImage) || !errors.Is(err, ai.ErrRemoteImage) {
		t.Fatalf("err = %v, want ErrImage wrapping ai.ErrRemoteImage", err)
	}
	if hits.Load() != 0 || len(p.chatRequests()) != 0 {
		t.Errorf("image server hits = %d, model calls = %d, want none", hits.Load(), len(p.chatRequests()))
	}
}

func TestRunModeration(t *testing.T) {
	tests := []struct {
		name        string
		checker     moderatorFunc
		wantFlagged bool
	}{
		{
			name: "flagged prompt rejected",
			checker: func(string) (*ai.ModerationResult, error) {
				return &ai.ModerationResult{Categories: []string{"violence"}}, nil
			},
			wantFlagged: true,
		},
		{
			name: "safe prompt proceeds",
			checker: func(string) (*ai.ModerationResult, error) {
				return &ai.ModerationResult{Safe: true}, nil
			},
		},
		{
			name: "moderation outage fails open",
			checker: func(string) (*ai.ModerationResult, error) {
				return nil, errors.New("moderation unavailable")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			checker := moderatorFunc(func(prompt string) (*ai.ModerationResult, error) {
				seen = prompt
				return tt.checker(prompt)
			})
			p := &scriptedProvider{steps: []scriptedStep{{text: []string{"ok"}}}}
			_, err := New(&fakeSource{p: p}, nil, nil, Config{}).WithModerator(checker).
				Run(context.Background(), testRequest(), &fakeSink{})

			if seen != "calm blue" {
				t.Errorf("checked prompt = %q, want %q", seen, "calm blue")
			}
			var flagged *FlaggedPromptError
			if got := errors.As(err, &flagged); got != tt.wantFlagged {
				t.Fatalf("err = %v, flagged = %v, want %v", err, got, tt.wantFlagged)
			}
			if tt.wantFlagged {
				if len(p.chatRequests()) != 0 {
					t.Error("a flagged prompt must not reach the model")
				}
				if len(flagged.Categories) != 1 || flagged.Categories[0] != "violence" {
					t.Errorf("categories = %v", flagged.Categories)
				}
			} else if err != nil {
				t.Errorf("Run: %v", err)
			}
		})
	}
}

func TestRunNoMessages(t *testing.T) {
	req := Request{AccountID: uuid.New(), Messages: []chat.Message{{ID: "a", Role: chat.RoleUser}}}
	_, err := New(&fakeSource{p: &scriptedProvider{}}, nil, nil, Config{}).Run(context.Background(), req, &fakeSink{})
	if !errors.Is(err, ErrNoMessages) {
		t.Fatalf("err = %v, want ErrNoMessages", err)
	}
}

func TestRunConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &scriptedProvider{
				steps:  []scriptedStep{{calls: []ai.ToolCall{{ID: "c", Name: ToolName}}}, {}},
				object: chunked(validThemeJSON(t), 64),
			}
			res, err := New(&fakeSource{p: p}, nil, nil, Config{}).Run(context.Background(), testRequest(), &fakeSink{})
			if err != nil || res.ThemeStyles == nil {
				t.Errorf("Run: res=%+v err=%v", res, err)
			}
		}()
	}
	wg.Wait()
}

// ---------- Helpers ----------

func testRequest() Request {
	return Request{
		AccountID: uuid.New(),
		ClientIP:  "203.0.113.7",
		Messages: []chat.Message{{
			ID:       "m1",
			Role:     chat.RoleUser,
			Parts:    []chat.Part{{Type: chat.PartText, Text: "calm blue"}},
			Metadata: &chat.Metadata{PromptData: &chat.PromptData{Content: "calm blue"}},
		}},
	}
}

// validThemeJSON builds a complete theme that passes the final check.
func validThemeJSON(t *testing.T) string {
	t.Helper()
	obj := map[string]map[string]string{"light": {}, "dark": {}}
	for _, mode := range []string{"light", "dark"} {
		for _, token := range theme.GenerationTokens() {
			var v string
			switch {
			case theme.IsColorToken(token):
				v = "#334155"
			case token == "font-sans":
				v = "Inter, sans-serif"
			case token == "font-serif":
				v = "Merriweather, serif"
			case token == "font-mono":
				v = "JetBrains Mono, monospace"
			case token == "radius":
				v = "0.5rem"
			case token == "letter-spacing":
				v = "0em"
			case token == "shadow-opacity":
				v = "0.1"
			default:
				v = "2px"
			}
			obj[mode][token] = v
		}
	}
	obj["light"]["primary"] = "#1d4ed8"
	obj["dark"]["background"] = "#0b1120"
	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshal theme: %v", err)
	}
	return string(raw)
}

func chunked(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}

type scriptedStep struct {
	text  []string
	calls []ai.ToolCall
	usage ai.Usage
	err   error
}

// scriptedProvider replays chat steps in order and streams object for
// every schema request.
type scriptedProvider struct {
	mu          sync.Mutex
	steps       []scriptedStep
	object      []string
	objectUsage ai.Usage
	chat        []ai.ChatRequest
	objects     []ai.ChatRequest

	cancelAfter int // cancel after this many object chunks; 0 never
	cancel      context.CancelFunc
}

func (p *scriptedProvider) Name() string { return "fake" }

func (p *scriptedProvider) Stream(ctx context.Context, req ai.ChatRequest, fn ai.StreamFunc) (*ai.Response, error) {
	if req.Schema != nil {
		p.mu.Lock()
		p.objects = append(p.objects, req)
		p.mu.Unlock()
		var text strings.Builder
		for i, c := range p.object {
			if p.cancelAfter > 0 && i == p.cancelAfter {
				p.cancel()
			}
			if ctx.Err() != nil {
				return nil, &ai.ProviderError{Provider: "fake", Code: ai.ErrCodeCanceled, Message: "stream", Err: ctx.Err()}
			}
			text.WriteString(c)
			if err := fn(ai.Chunk{TextDelta: c}); err != nil {
				return nil, err
			}
		}
		return &ai.Response{Text: text.String(), Usage: p.objectUsage}, nil
	}

	p.mu.Lock()
	idx := len(p.chat)
	p.chat = append(p.chat, req)
	p.mu.Unlock()

	var step scriptedStep
	if idx < len(p.steps) {
		step = p.steps[idx]
	}
	if step.err != nil {
		return nil, step.err
	}
	var text strings.Builder
	for _, d := range step.text {
		text.WriteString(d)
		if err := fn(ai.Chunk{TextDelta: d}); err != nil {
			return nil, err
		}
	}
	for i := range step.calls {
		if err := fn(ai.Chunk{ToolCall: &step.calls[i]}); err != nil {
			return nil, err
		}
	}
	return &ai.Response{Text: text.String(), ToolCalls: step.calls, Usage: step.usage}, nil
}

func (p *scriptedProvider) chatRequests() []ai.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ai.ChatRequest(nil), p.chat...)
}

func (p *scriptedProvider) objectRequests() []ai.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ai.ChatRequest(nil), p.objects...)
}

type fakeSource struct {
	p     ai.Provider
	model string
}

func (s *fakeSource) Active() (ai.Provider, error) { return s.p, nil }
func (s *fakeSource) ModelFor(ai.ModelRole) string { return s.model }

type statusEvent struct {
	id     string
	status ThemeStatus
	styles map[string]any
}

type fakeSink struct {
	kinds    []string
	text     strings.Builder
	events   []statusEvent
	metadata *theme.Styles
	failOn   string
}

func (s *fakeSink) TextDelta(d string) error {
	if s.failOn == "text" {
		return errors.New("broken pipe")
	}
	s.kinds = append(s.kinds, "text")
	s.text.WriteString(d)
	return nil
}

func (s *fakeSink) ThemeStatus(id string, status ThemeStatus, styles map[string]any) error {
	if s.failOn == "status" {
		return errors.New("broken pipe")
	}
	s.kinds = append(s.kinds, "status")
	s.events = append(s.events, statusEvent{id: id, status: status, styles: styles})
	return nil
}

func (s *fakeSink) Metadata(styles theme.Styles) error {
	s.kinds = append(s.kinds, "metadata")
	s.metadata = &styles
	return nil
}

func (s *fakeSink) statuses() []ThemeStatus {
	var out []ThemeStatus
	for _, e := range s.events {
		out = append(out, e.status)
	}
	return out
}

func (s *fakeSink) statusIDs() []string {
	var out []string
	for _, e := range s.events {
		out = append(out, e.id)
	}
	return out
}

func (s *fakeSink) snapshots() []map[string]any {
	var out []map[string]any
	for _, e := range s.events {
		if e.styles != nil {
			out = append(out, e.styles)
		}
	}
	return out
}

type recordCall struct {
	account uuid.UUID
	model   string
	usage   ai.Usage
}

type fakeRecorder struct {
	calls []recordCall
}

func (r *fakeRecorder) Record(_ context.Context, accountID uuid.UUID, modelID string, u ai.Usage) {
	r.calls = append(r.calls, recordCall{account: accountID, model: modelID, usage: u})
}

type moderatorFunc func(prompt string) (*ai.ModerationResult, error)

func (f moderatorFunc) CheckPrompt(_ context.Context, prompt string) (*ai.ModerationResult, error) {
	return f(prompt)
}

type admitFunc func() error

func (f admitFunc) Admit(context.Context, uuid.UUID, string) (*quota.Reservation, error) {
	return nil, f()
}

// reserveAdmitter admits through a real quota checker.
type reserveAdmitter struct{ c *quota.Checker }

func (a reserveAdmitter) Admit(ctx context.Context, id uuid.UUID, _ string) (*quota.Reservation, error) {
	st, res, err := a.c.Reserve(ctx, id)
	if err != nil {
		return nil, err
	}
	if !st.CanProceed {
		return nil, errors.New(st.Reason)
	}
	return res, nil
}

type usedCount int

func (n usedCount) CountByUser(context.Context, uuid.UUID) (int, error) { return int(n), nil }

type freeAccount struct{}

func (freeAccount) IsActive(context.Context, uuid.UUID) (bool, error) { return false, nil }
