// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"fmt"
	"strings"
)

// ValidationError describes the first rule a theme object broke.
// Mode and Token are empty when the problem is at the top level.
type ValidationError struct {
	Mode   string
	Token  string
	Reason string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Mode == "":
		return "theme: " + e.Reason
	case e.Token == "":
		return fmt.Sprintf("theme: %s: %s", e.Mode, e.Reason)
	default:
		return fmt.Sprintf("theme: %s.%s: %s", e.Mode, e.Token, e.Reason)
	}
}

// ValidatePartial checks a streamed, possibly incomplete theme object.
// Missing modes and tokens are accepted; unknown keys and non-string
// values are not.
func ValidatePartial(obj map[string]any) error {
	for key, raw := range obj {
		props, err := modeObject(key, raw)
		if err != nil {
			return err
		}
		for token, v := range props {
			if err := checkPartialToken(key, token, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateFinal checks a finished generation. Both modes must carry every
// generation token as a string, and colour tokens must be #RRGGBB.
func ValidateFinal(obj map[string]any) (Styles, error) {
	if err := ValidatePartial(obj); err != nil {
		return Styles{}, err
	}

	out := Styles{Light: StyleProps{}, Dark: StyleProps{}}
	for _, mode := range Modes {
		raw, ok := obj[string(mode)]
		if !ok {
			return Styles{}, &ValidationError{Mode: string(mode), Reason: "missing mode"}
		}
		props := raw.(map[string]any)
		dst := out.Props(mode)
		for _, token := range generationTokens {
			v, ok := props[token]
			if !ok {
				return Styles{}, &ValidationError{Mode: string(mode), Token: token, Reason: "missing token"}
			}
			s := v.(string)
			if IsColorToken(token) && !IsHexColor(s) {
				return Styles{}, &ValidationError{Mode: string(mode), Token: token, Reason: fmt.Sprintf("%q is not a #RRGGBB colour", s)}
			}
			dst[token] = s
		}
	}
	return out, nil
}

// ValidateStored checks a theme submitted for saving. Every token except
// spacing is required and must be non-empty; colours may use any CSS syntax.
func ValidateStored(s Styles) error {
	for _, mode := range Modes {
		props := s.Props(mode)
		if props == nil {
			return &ValidationError{Mode: string(mode), Reason: "missing mode"}
		}
		for token, v := range props {
			if !IsToken(token) {
				return &ValidationError{Mode: string(mode), Token: token, Reason: "unknown token"}
			}
			if strings.TrimSpace(v) == "" {
				return &ValidationError{Mode: string(mode), Token: token, Reason: "empty value"}
			}
		}
		for _, token := range generationTokens {
			if _, ok := props[token]; !ok {
				return &ValidationError{Mode: string(mode), Token: token, Reason: "missing token"}
			}
		}
	}
	return nil
}

// IsHexColor reports whether s is exactly #RRGGBB.
func IsHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for i := 1; i < 7; i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func modeObject(key string, raw any) (map[string]any, error) {
	if key != string(ModeLight) && key != string(ModeDark) {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown mode %q", key)}
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Mode: key, Reason: fmt.Sprintf("expected object, got %T", raw)}
	}
	return props, nil
}

func checkPartialToken(mode, token string, v any) error {
	if !IsGenerationToken(token) {
		return &ValidationError{Mode: mode, Token: token, Reason: "unknown token"}
	}
	if _, ok := v.(string); !ok {
		return &ValidationError{Mode: mode, Token: token, Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	return nil
}
