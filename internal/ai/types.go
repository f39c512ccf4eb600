// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import "encoding/json"

// Role identifies who authored a model turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType discriminates the content carried by a Part.
type PartType string

const (
	PartText       PartType = "text"
	PartImage      PartType = "image"
	PartToolCall   PartType = "tool-call"
	PartToolResult PartType = "tool-result"
)

// Part is one fragment of a model turn. Exactly one payload field is set,
// matching Type.
type Part struct {
	Type       PartType
	Text       string
	ImageURL   string // data: URL or remote http(s) URL
	ToolCall   *ToolCall
	ToolResult *ToolResult
}

// TextPart builds a text fragment.
func TextPart(text string) Part { return Part{Type: PartText, Text: text} }

// ImagePart builds an image fragment from a data or remote URL.
func ImagePart(url string) Part { return Part{Type: PartImage, ImageURL: url} }

// Message is one turn sent to a provider.
type Message struct {
	Role  Role
	Parts []Part
}

// Text joins the text parts of a message.
func (m Message) Text() string {
	var s string
	for _, p := range m.Parts {
		if p.Type == PartText {
			s += p.Text
		}
	}
	return s
}

// ToolCall is a model's request to run a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult is the value returned to the model for a ToolCall.
type ToolResult struct {
	CallID  string
	Name    string
	Output  json.RawMessage
	IsError bool
}

// Tool describes a callable function offered to the model. Parameters is
// a JSON schema object; nil means the tool takes no arguments.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// parameters returns the tool's schema, defaulting to an empty object.
func (t Tool) parameters() map[string]any {
	if t.Parameters != nil {
		return t.Parameters
	}
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// Usage is the token accounting reported by a provider.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
	}
}

// Total returns prompt plus completion tokens.
func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }

// IsZero reports whether no tokens were recorded.
func (u Usage) IsZero() bool { return u.PromptTokens == 0 && u.CompletionTokens == 0 }

// ChatRequest is a single streamed completion.
type ChatRequest struct {
	Model    string // empty means the provider's default model
	System   string
	Messages []Message
	Tools    []Tool

	// Schema, when set, asks the provider for a single JSON object
	// conforming to it instead of free text.
	Schema     map[string]any
	SchemaName string

	// ThinkingBudget caps reasoning tokens on providers that support it.
	ThinkingBudget int
	MaxTokens      int
}

// Chunk is one streamed event from a provider. Text deltas arrive as they
// are produced; tool calls are delivered once fully assembled.
type Chunk struct {
	TextDelta string
	ToolCall  *ToolCall
}

// StreamFunc receives chunks in order. Returning an error stops the stream
// and the error is returned from Stream.
type StreamFunc func(Chunk) error

// Response summarises a finished stream.
type Response struct {
	Text         string
	ToolCalls    []ToolCall
	Usage        Usage
	FinishReason string
	Model        string
}
