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

	"github.com/google/uuid"
)

// geminiProvider implements the Provider interface using the Google
// Gemini REST API (POST /v1beta/models/{model}:streamGenerateContent).
type geminiProvider struct {
	config ProviderConfig
	client *http.Client
}

// newGemini creates a new Google Gemini provider.
func newGemini(cfg ProviderConfig) *geminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-pro"
	}
	return &geminiProvider{
		config: cfg,
		// Streams are bounded by the request context, not a client timeout.
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *geminiProvider) Name() string { return "gemini" }

// Stream sends a streamGenerateContent request and relays text deltas and
// function calls as they arrive.
func (p *geminiProvider) Stream(ctx context.Context, req ChatRequest, fn StreamFunc) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	body, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", p.config.BaseURL, model)
	header := http.Header{}
	header.Set("x-goog-api-key", p.config.APIKey)

	resp, err := openStream(ctx, p.client, "gemini", url, header, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out := &Response{Model: model}
	var text strings.Builder
	var cbErr error

	err = readSSE(resp.Body, func(_, data string) error {
		var chunk geminiStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return fmt.Errorf("gemini unmarshal: %w", err)
		}
		if chunk.Error != nil {
			return &ProviderError{Provider: "gemini", Code: ErrCodeServerError, Status: chunk.Error.Code, Message: chunk.Error.Message}
		}
		if u := chunk.UsageMetadata; u != nil {
			// Gemini reports cumulative counts on every chunk.
			out.Usage = Usage{
				PromptTokens:     u.PromptTokenCount,
				CompletionTokens: u.CandidatesTokenCount + u.ThoughtsTokenCount,
			}
		}
		if len(chunk.Candidates) == 0 {
			return nil
		}
		cand := chunk.Candidates[0]
		if cand.FinishReason != "" {
			out.FinishReason = cand.FinishReason
		}
		for _, part := range cand.Content.Parts {
			switch {
			case part.Thought:
				continue
			case part.FunctionCall != nil:
				args := part.FunctionCall.Args
				if len(args) == 0 || string(args) == "null" {
					args = json.RawMessage("{}")
				}
				call := ToolCall{ID: uuid.NewString(), Name: part.FunctionCall.Name, Arguments: args}
				out.ToolCalls = append(out.ToolCalls, call)
				if err := fn(Chunk{ToolCall: &call}); err != nil {
					cbErr = err
					return err
				}
			case part.Text != "":
				text.WriteString(part.Text)
				if err := fn(Chunk{TextDelta: part.Text}); err != nil {
					cbErr = err
					return err
				}
			}
		}
		return nil
	})
	if cbErr != nil {
		return nil, cbErr
	}
	if err != nil {
		return nil, streamError(ctx, "gemini", err)
	}

	out.Text = text.String()
	return out, nil
}

func (p *geminiProvider) buildRequest(req ChatRequest) (*geminiRequest, error) {
	body := &geminiRequest{}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	for _, m := range req.Messages {
		c := geminiContent{Role: "user"}
		if m.Role == RoleAssistant {
			c.Role = "model"
		}
		for _, part := range m.Parts {
			switch part.Type {
			case PartText:
				if part.Text != "" {
					c.Parts = append(c.Parts, geminiPart{Text: part.Text})
				}
			case PartImage:
				mediaType, data, err := loadImage(part.ImageURL)
				if err != nil {
					return nil, fmt.Errorf("gemini image: %w", err)
				}
				c.Parts = append(c.Parts, geminiPart{InlineData: &geminiBlob{
					MimeType: mediaType,
					Data:     base64.StdEncoding.EncodeToString(data),
				}})
			case PartToolCall:
				c.Parts = append(c.Parts, geminiPart{FunctionCall: &geminiFunctionCall{
					Name: part.ToolCall.Name,
					Args: part.ToolCall.Arguments,
				}})
			case PartToolResult:
				c.Parts = append(c.Parts, geminiPart{FunctionResponse: &geminiFunctionResponse{
					Name:     part.ToolResult.Name,
					Response: map[string]any{"name": part.ToolResult.Name, "content": part.ToolResult.Output},
				}})
			}
		}
		if len(c.Parts) > 0 {
			body.Contents = append(body.Contents, c)
		}
	}

	if len(req.Tools) > 0 {
		var decls []geminiFunctionDecl
		for _, t := range req.Tools {
			decls = append(decls, geminiFunctionDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			})
		}
		body.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}

	cfg := &geminiGenerationConfig{MaxOutputTokens: req.MaxTokens}
	if req.Schema != nil {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseJSONSchema = req.Schema
	}
	if req.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: req.ThinkingBudget}
	}
	body.GenerationConfig = cfg

	return body, nil
}

// --- Gemini API types ---

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	Thought          bool                    `json:"thought,omitempty"`
	InlineData       *geminiBlob             `json:"inlineData,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parametersJsonSchema,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiThinkingConfig struct {
	ThinkingBudget  int  `json:"thinkingBudget"`
	IncludeThoughts bool `json:"includeThoughts"`
}

type geminiGenerationConfig struct {
	ResponseMimeType   string                `json:"responseMimeType,omitempty"`
	ResponseJSONSchema map[string]any        `json:"responseJsonSchema,omitempty"`
	ThinkingConfig     *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
	MaxOutputTokens    int                   `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
}

type geminiStreamChunk struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata *geminiUsage      `json:"usageMetadata"`
	Error         *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
