// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

// GenerationSchema returns the JSON schema the model must follow when it
// streams a theme object: both modes, every generation token, all strings.
// Spacing is not part of it.
func GenerationSchema() map[string]any {
	mode := func(desc string) map[string]any {
		props := make(map[string]any, len(generationTokens))
		for _, token := range generationTokens {
			p := map[string]any{"type": "string"}
			switch {
			case IsColorToken(token):
				p["description"] = "HEX colour, #RRGGBB"
			case IsFontToken(token):
				p["description"] = "Google Font family followed by a generic fallback"
			}
			props[token] = p
		}
		return map[string]any{
			"type":        "object",
			"description": desc,
			"properties":  props,
			"required":    GenerationTokens(),
		}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"light": mode("Light mode tokens"),
			"dark":  mode("Dark mode tokens"),
		},
		"required": []string{"light", "dark"},
	}
}
