// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package chat holds the client-facing conversation model and projects it
// into the turns sent to a language model.
package chat

import (
	"encoding/json"

	"tweakgen/internal/theme"
)

// Role of a client-facing message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CurrentChangesID is the mention id the client uses for the live,
// unsaved editor state.
const CurrentChangesID = "editor:current-changes"

// Part type names as the client sends them.
const (
	PartText              = "text"
	PartToolGenerateTheme = "tool-generateTheme"
	PartThemeStatus       = "data-theme-styles-status"
)

// Message is one entry of the conversation the client posts.
type Message struct {
	ID       string    `json:"id"`
	Role     Role      `json:"role"`
	Parts    []Part    `json:"parts"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Part is a fragment of a client message. Only the fields matching Type
// are set; unknown part types are carried but ignored.
type Part struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	State      string          `json:"state,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	ID         string          `json:"id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Metadata is the structured sidecar of a message: prompt data on user
// turns, the generated theme and error flag on assistant turns.
type Metadata struct {
	PromptData  *PromptData   `json:"promptData,omitempty"`
	ThemeStyles *theme.Styles `json:"themeStyles,omitempty"`
	IsError     bool          `json:"isError,omitempty"`
}

// PromptData is what the user typed, attached and mentioned.
type PromptData struct {
	Content  string    `json:"content"`
	Mentions []Mention `json:"mentions"`
	Images   []Image   `json:"images,omitempty"`
}

// Mention references a saved theme or the live editor state, already
// resolved to its token data by the client.
type Mention struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	ThemeData ThemeData `json:"themeData"`
}

// ThemeData holds the (possibly partial) token maps of a mention.
type ThemeData struct {
	Light theme.StyleProps `json:"light"`
	Dark  theme.StyleProps `json:"dark"`
}

// Image is an attachment; URL may be a data: URL.
type Image struct {
	URL string `json:"url"`
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

// LastUserPrompt returns the prompt data of the most recent user message.
func LastUserPrompt(messages []Message) (*PromptData, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != RoleUser {
			continue
		}
		if m.Metadata == nil || m.Metadata.PromptData == nil {
			return nil, false
		}
		return m.Metadata.PromptData, true
	}
	return nil, false
}
