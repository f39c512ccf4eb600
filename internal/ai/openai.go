package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"
)

// openAIProvider implements the Provider interface using the OpenAI
// chat completions API (POST /v1/chat/completions) in streaming mode.
type openAIProvider struct {
	name   string
	config ProviderConfig
	client *http.Client
}

// newOpenAI creates a new OpenAI provider.
func newOpenAI(cfg ProviderConfig) *openAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &openAIProvider{
		name:   "openai",
		config: cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *openAIProvider) Name() string { return p.name }

// Stream sends a streaming chat completion request. Shared between OpenAI
// and Mistral (same wire format).
func (p *openAIProvider) Stream(ctx context.Context, req ChatRequest, fn StreamFunc) (*Response, error) {
	body := p.buildRequest(req)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := openStream(ctx, p.client, p.name, p.config.BaseURL+"/chat/completions", header, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &Response{Model: body.Model}
	var text strings.Builder
	var cbErr error
	pending := map[int]*ToolCall{}

	err = readSSE(resp.Body, func(_, data string) error {
		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return err
		}
		if chunk.Error != nil {
			return &ProviderError{Provider: p.name, Code: ErrCodeServerError, Message: chunk.Error.Message}
		}
		if chunk.Usage != nil {
			out.Usage = Usage{PromptTokens: chunk.Usage.PromptTokens, CompletionTokens: chunk.Usage.CompletionTokens}
		}
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		for _, choice := range chunk.Choices {
			if choice.FinishReason != "" {
				out.FinishReason = choice.FinishReason
			}
			if d := choice.Delta.Content; d != "" {
				text.WriteString(d)
				if err := fn(Chunk{TextDelta: d}); err != nil {
					cbErr = err
					return err
				}
			}
			// Tool call arguments arrive in fragments keyed by index.
			for _, tc := range choice.Delta.ToolCalls {
				call, ok := pending[tc.Index]
				if !ok {
					call = &ToolCall{}
					pending[tc.Index] = call
				}
				if tc.ID != "" {
					call.ID = tc.ID
				}
				if tc.Function.Name != "" {
					call.Name = tc.Function.Name
				}
				call.Arguments = append(call.Arguments, tc.Function.Arguments...)
			}
		}
		return nil
	})
	if cbErr != nil {
		return nil, cbErr
	}
	if err != nil {
		return nil, streamError(ctx, p.name, err)
	}

	indexes := make([]int, 0, len(pending))
	for i := range pending {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)
	for _, i := range indexes {
		call := *pending[i]
		if len(call.Arguments) == 0 {
			call.Arguments = json.RawMessage("{}")
		}
		out.ToolCalls = append(out.ToolCalls, call)
		if err := fn(Chunk{ToolCall: &call}); err != nil {
			return nil, err
		}
	}

	out.Text = text.String()
	return out, nil
}

func (p *openAIProvider) buildRequest(req ChatRequest) openAIRequest {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	body := openAIRequest{
		Model:         model,
		Stream:        true,
		StreamOptions: &openAIStreamOptions{IncludeUsage: true},
		MaxTokens:     req.MaxTokens,
	}

	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, toOpenAIMessages(m)...)
	}

	for _, t := range req.Tools {
		body.Tools = append(body.Tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.parameters(),
			},
		})
	}

	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		body.ResponseFormat = &openAIResponseFormat{
			Type:       "json_schema",
			JSONSchema: &openAIJSONSchema{Name: name, Schema: req.Schema},
		}
	}
	return body
}

// toOpenAIMessages expands one turn; tool results become separate "tool"
// messages as the chat completions format requires.
func toOpenAIMessages(m Message) []openAIMessage {
	var out []openAIMessage
	msg := openAIMessage{Role: string(m.Role)}
	var content []openAIContentPart
	hasImage := false

	for _, part := range m.Parts {
		switch part.Type {
		case PartText:
			content = append(content, openAIContentPart{Type: "text", Text: part.Text})
		case PartImage:
			hasImage = true
			content = append(content, openAIContentPart{Type: "image_url", ImageURL: &openAIImageURL{URL: part.ImageURL}})
		case PartToolCall:
			msg.ToolCalls = append(msg.ToolCalls, openAIToolCall{
				ID:   part.ToolCall.ID,
				Type: "function",
				Function: openAIFunctionCall{
					Name:      part.ToolCall.Name,
					Arguments: string(part.ToolCall.Arguments),
				},
			})
		case PartToolResult:
			out = append(out, openAIMessage{
				Role:       "tool",
				ToolCallID: part.ToolResult.CallID,
				Content:    string(part.ToolResult.Output),
			})
		}
	}

	switch {
	case hasImage:
		msg.Content = content
	case len(content) > 0:
		var sb strings.Builder
		for i, c := range content {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(c.Text)
		}
		msg.Content = sb.String()
	}
	if msg.Content != nil || len(msg.ToolCalls) > 0 {
		out = append([]openAIMessage{msg}, out...)
	}
	return out
}

// --- OpenAI-compatible request/response types ---
// Used by both OpenAI and Mistral providers.

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

type openAIToolCall struct {
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function openAIFunctionCall `json:"function"`
}

// openAIMessage.Content is a string or a []openAIContentPart.
type openAIMessage struct {
	Role       string           `json:"role"`
	Content    any              `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIJSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Tools          []openAITool          `json:"tools,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
	Stream         bool                  `json:"stream"`
	StreamOptions  *openAIStreamOptions  `json:"stream_options,omitempty"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
}

type openAIStreamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}
