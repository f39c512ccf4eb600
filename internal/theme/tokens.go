// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package theme defines the shadcn/ui token taxonomy, the ThemeStyles
// artifact produced by generation, and the validation rules applied to it
// while it streams and once it is final. It also renders themes as CSS.
package theme

import "slices"

// Mode is one of the two colour schemes a theme defines.
type Mode string

const (
	ModeLight Mode = "light"
	ModeDark  Mode = "dark"
)

// Modes lists the modes in the order they are rendered and validated.
var Modes = []Mode{ModeLight, ModeDark}

// StyleProps maps token names (e.g. "primary", "font-sans") to CSS values.
type StyleProps map[string]string

// Styles is a complete or partial theme: one token map per mode.
type Styles struct {
	Light StyleProps `json:"light"`
	Dark  StyleProps `json:"dark"`
}

// Props returns the token map for a mode.
func (s Styles) Props(m Mode) StyleProps {
	if m == ModeDark {
		return s.Dark
	}
	return s.Light
}

// Clone returns a deep copy of the styles.
func (s Styles) Clone() Styles {
	out := Styles{Light: make(StyleProps, len(s.Light)), Dark: make(StyleProps, len(s.Dark))}
	for k, v := range s.Light {
		out.Light[k] = v
	}
	for k, v := range s.Dark {
		out.Dark[k] = v
	}
	return out
}

// TokenSpacing is stored with themes but never produced by the model.
const TokenSpacing = "spacing"

// colorTokens are the tokens whose model-generated values must be #RRGGBB.
var colorTokens = []string{
	"background", "foreground",
	"card", "card-foreground",
	"popover", "popover-foreground",
	"primary", "primary-foreground",
	"secondary", "secondary-foreground",
	"muted", "muted-foreground",
	"accent", "accent-foreground",
	"destructive", "destructive-foreground",
	"border", "input", "ring",
	"chart-1", "chart-2", "chart-3", "chart-4", "chart-5",
	"sidebar", "sidebar-foreground",
	"sidebar-primary", "sidebar-primary-foreground",
	"sidebar-accent", "sidebar-accent-foreground",
	"sidebar-border", "sidebar-ring",
	"shadow-color",
}

var fontTokens = []string{"font-sans", "font-serif", "font-mono"}

var otherTokens = []string{
	"radius",
	"shadow-opacity", "shadow-blur", "shadow-spread", "shadow-offset-x", "shadow-offset-y",
	"letter-spacing",
}

var (
	generationTokens = append(append(slices.Clone(colorTokens), fontTokens...), otherTokens...)
	allTokens        = append(slices.Clone(generationTokens), TokenSpacing)

	generationSet = toSet(generationTokens)
	allSet        = toSet(allTokens)
	colorSet      = toSet(colorTokens)
)

func toSet(names []string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// Tokens returns every token a stored theme carries, including spacing.
func Tokens() []string { return slices.Clone(allTokens) }

// GenerationTokens returns the tokens the model is asked to produce.
func GenerationTokens() []string { return slices.Clone(generationTokens) }

// IsToken reports whether name belongs to the stored-theme taxonomy.
func IsToken(name string) bool {
	_, ok := allSet[name]
	return ok
}

// IsGenerationToken reports whether name is part of the model-facing schema.
func IsGenerationToken(name string) bool {
	_, ok := generationSet[name]
	return ok
}

// IsColorToken reports whether name holds a colour value.
func IsColorToken(name string) bool {
	_, ok := colorSet[name]
	return ok
}

// IsFontToken reports whether name holds a font stack.
func IsFontToken(name string) bool {
	return slices.Contains(fontTokens, name)
}
