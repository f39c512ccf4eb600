// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"tweakgen/internal/ai"
)

// ErrEmptyPrompt is returned by Validate for a prompt with no text, images
// or mentions.
var ErrEmptyPrompt = errors.New("chat: prompt has no text, images or mentions")

const svgDataPrefix = "data:image/svg+xml"

// Normalize projects a conversation into model turns, preserving order.
//
// User messages without prompt data are skipped. Assistant messages carry
// their text; only the latest one with a generated theme also carries that
// theme as JSON, so history does not grow with every past generation.
func Normalize(messages []Message) []ai.Message {
	latestTheme := -1
	for i, m := range messages {
		if m.Role == RoleAssistant && m.Metadata != nil && m.Metadata.ThemeStyles != nil {
			latestTheme = i
		}
	}

	var out []ai.Message
	for i, m := range messages {
		switch m.Role {
		case RoleUser:
			if m.Metadata == nil || m.Metadata.PromptData == nil {
				continue
			}
			parts := BuildUserParts(*m.Metadata.PromptData)
			if len(parts) == 0 {
				continue
			}
			out = append(out, ai.Message{Role: ai.RoleUser, Parts: parts})

		case RoleAssistant:
			var parts []ai.Part
			if text := m.Text(); text != "" {
				parts = append(parts, ai.TextPart(text))
			}
			if i == latestTheme {
				if b, err := json.Marshal(m.Metadata.ThemeStyles); err == nil {
					parts = append(parts, ai.TextPart(string(b)))
				}
			}
			if len(parts) == 0 {
				continue
			}
			out = append(out, ai.Message{Role: ai.RoleAssistant, Parts: parts})
		}
	}
	return out
}

// BuildUserParts renders prompt data as model parts: images first, then
// the prompt text, then one part per distinct mention.
func BuildUserParts(p PromptData) []ai.Part {
	var parts []ai.Part

	for _, img := range p.Images {
		if img.URL == "" {
			continue
		}
		if strings.HasPrefix(img.URL, svgDataPrefix) {
			if markup, ok := decodeSVG(img.URL); ok {
				parts = append(parts, ai.TextPart("Here is an SVG image for analysis:\n```svg\n"+markup+"\n```"))
				continue
			}
		}
		parts = append(parts, ai.ImagePart(img.URL))
	}

	if text := strings.TrimSpace(p.Content); text != "" {
		parts = append(parts, ai.TextPart(text))
	}

	for _, m := range DedupeMentions(p.Mentions) {
		parts = append(parts, ai.TextPart(MentionText(m)))
	}
	return parts
}

// DedupeMentions drops repeated mention ids, keeping first-seen order.
func DedupeMentions(mentions []Mention) []Mention {
	seen := make(map[string]struct{}, len(mentions))
	out := make([]Mention, 0, len(mentions))
	for _, m := range mentions {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// MentionText formats a mention as "@label = {json}".
func MentionText(m Mention) string {
	data := m.ThemeData
	if data.Light == nil {
		data.Light = map[string]string{}
	}
	if data.Dark == nil {
		data.Dark = map[string]string{}
	}
	b, _ := json.Marshal(data)
	return "@" + strings.TrimPrefix(m.Label, "@") + " = " + string(b)
}

// Validate rejects a prompt that gives the model nothing to work with. An
// image-only prompt is valid.
func Validate(p PromptData) error {
	if strings.TrimSpace(p.Content) != "" || len(p.Mentions) > 0 {
		return nil
	}
	for _, img := range p.Images {
		if img.URL != "" {
			return nil
		}
	}
	return ErrEmptyPrompt
}

func decodeSVG(dataURL string) (string, bool) {
	_, data, err := ai.ParseDataURL(dataURL)
	if err != nil || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}
