// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// claudeMaxTokens is the default output cap; the Messages API requires one.
const claudeMaxTokens = 8192

// claudeProvider implements the Provider interface using the Anthropic
// Messages API (POST /v1/messages) with server-sent events.
type claudeProvider struct {
	config ProviderConfig
	client *http.Client
}

// newClaude creates a new Anthropic Claude provider.
func newClaude(cfg ProviderConfig) *claudeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	return &claudeProvider{
		config: cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *claudeProvider) Name() string { return "claude" }

// Stream sends a streaming Messages request. Text arrives as text_delta
// events; tool_use inputs are assembled from input_json_delta fragments and
// delivered when their content block stops.
func (p *claudeProvider) Stream(ctx context.Context, req ChatRequest, fn StreamFunc) (*Response, error) {
	body, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("x-api-key", p.config.APIKey)
	header.Set("anthropic-version", "2023-06-01")

	resp, err := openStream(ctx, p.client, "claude", p.config.BaseURL+"/v1/messages", header, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &Response{Model: body.Model}
	var text strings.Builder
	var cbErr error
	blocks := map[int]*ToolCall{}

	emit := func(c Chunk) error {
		if err := fn(c); err != nil {
			cbErr = err
			return err
		}
		return nil
	}

	err = readSSE(resp.Body, func(_, data string) error {
		var ev claudeStreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return err
		}
		switch ev.Type {
		case "message_start":
			if ev.Message != nil {
				out.Usage.PromptTokens = ev.Message.Usage.InputTokens
				out.Usage.CompletionTokens = ev.Message.Usage.OutputTokens
				if ev.Message.Model != "" {
					out.Model = ev.Message.Model
				}
			}
		case "content_block_start":
			if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
				blocks[ev.Index] = &ToolCall{ID: ev.ContentBlock.ID, Name: ev.ContentBlock.Name}
			}
		case "content_block_delta":
			if ev.Delta == nil {
				return nil
			}
			switch ev.Delta.Type {
			case "text_delta":
				text.WriteString(ev.Delta.Text)
				return emit(Chunk{TextDelta: ev.Delta.Text})
			case "input_json_delta":
				if call, ok := blocks[ev.Index]; ok {
					call.Arguments = append(call.Arguments, ev.Delta.PartialJSON...)
				}
			}
		case "content_block_stop":
			call, ok := blocks[ev.Index]
			if !ok {
				return nil
			}
			delete(blocks, ev.Index)
			if len(call.Arguments) == 0 {
				call.Arguments = json.RawMessage("{}")
			}
			out.ToolCalls = append(out.ToolCalls, *call)
			return emit(Chunk{ToolCall: call})
		case "message_delta":
			if ev.Delta != nil && ev.Delta.StopReason != "" {
				out.FinishReason = ev.Delta.StopReason
			}
			if ev.Usage != nil {
				out.Usage.CompletionTokens = ev.Usage.OutputTokens
			}
		case "error":
			msg := "stream error"
			if ev.Error != nil {
				msg = ev.Error.Type + ": " + ev.Error.Message
			}
			code := ErrCodeServerError
			if ev.Error != nil && ev.Error.Type == "rate_limit_error" {
				code = ErrCodeRateLimit
			}
			return &ProviderError{Provider: "claude", Code: code, Message: msg}
		}
		return nil
	})
	if cbErr != nil {
		return nil, cbErr
	}
	if err != nil {
		return nil, streamError(ctx, "claude", err)
	}

	out.Text = text.String()
	return out, nil
}

func (p *claudeProvider) buildRequest(req ChatRequest) (*claudeRequest, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = claudeMaxTokens
	}

	system := req.System
	if req.Schema != nil {
		// The Messages API has no native JSON mode; the schema travels in
		// the system prompt and the model answers with the bare object.
		schema, err := json.Marshal(req.Schema)
		if err != nil {
			return nil, fmt.Errorf("claude marshal schema: %w", err)
		}
		system += "\n\nRespond with a single JSON object that conforms to this JSON schema, with no prose and no code fences:\n" + string(schema)
	}

	body := &claudeRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    strings.TrimSpace(system),
		Stream:    true,
	}

	for _, m := range req.Messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "assistant"
		}
		var blocks []claudeContentBlock
		for _, part := range m.Parts {
			switch part.Type {
			case PartText:
				if part.Text != "" {
					blocks = append(blocks, claudeContentBlock{Type: "text", Text: part.Text})
				}
			case PartImage:
				mediaType, data, err := loadImage(part.ImageURL)
				if err != nil {
					return nil, fmt.Errorf("claude image: %w", err)
				}
				blocks = append(blocks, claudeContentBlock{Type: "image", Source: &claudeImageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      base64.StdEncoding.EncodeToString(data),
				}})
			case PartToolCall:
				blocks = append(blocks, claudeContentBlock{
					Type:  "tool_use",
					ID:    part.ToolCall.ID,
					Name:  part.ToolCall.Name,
					Input: part.ToolCall.Arguments,
				})
			case PartToolResult:
				blocks = append(blocks, claudeContentBlock{
					Type:      "tool_result",
					ToolUseID: part.ToolResult.CallID,
					Content:   string(part.ToolResult.Output),
					IsError:   part.ToolResult.IsError,
				})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		// Tool results travel as user turns; adjacent same-role turns merge
		// because the API requires alternation.
		if n := len(body.Messages); n > 0 && body.Messages[n-1].Role == role {
			body.Messages[n-1].Content = append(body.Messages[n-1].Content, blocks...)
			continue
		}
		body.Messages = append(body.Messages, claudeMessage{Role: role, Content: blocks})
	}

	for _, t := range req.Tools {
		body.Tools = append(body.Tools, claudeTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.parameters(),
		})
	}
	return body, nil
}

// --- Anthropic Messages API types ---

type claudeImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeContentBlock struct {
	Type      string             `json:"type"`
	Text      string             `json:"text,omitempty"`
	Source    *claudeImageSource `json:"source,omitempty"`
	ID        string             `json:"id,omitempty"`
	Name      string             `json:"name,omitempty"`
	Input     json.RawMessage    `json:"input,omitempty"`
	ToolUseID string             `json:"tool_use_id,omitempty"`
	Content   string             `json:"content,omitempty"`
	IsError   bool               `json:"is_error,omitempty"`
}

type claudeMessage struct {
	Role    string               `json:"role"`
	Content []claudeContentBlock `json:"content"`
}

type claudeTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
	Tools     []claudeTool    `json:"tools,omitempty"`
	Stream    bool            `json:"stream"`
}

type claudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type claudeStreamEvent struct {
	Type    string `json:"type"`
	Index   int    `json:"index"`
	Message *struct {
		Model string      `json:"model"`
		Usage claudeUsage `json:"usage"`
	} `json:"message"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	Usage *claudeUsage `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
