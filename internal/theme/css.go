// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

import (
	"fmt"
	"strconv"
	"strings"
)

// CSSOptions controls optional parts of the generated stylesheet.
type CSSOptions struct {
	IncludeFonts bool
}

// paletteTokens are emitted as --<token> colour variables in both modes.
var paletteTokens = colorTokens[:len(colorTokens)-1] // everything but shadow-color

var shadowNames = []string{
	"shadow-2xs", "shadow-xs", "shadow-sm", "shadow",
	"shadow-md", "shadow-lg", "shadow-xl", "shadow-2xl",
}

// GenerateCSS renders a theme as the :root/.dark variable blocks plus the
// Tailwind v4 "@theme inline" mapping. Missing tokens take the defaults.
func GenerateCSS(s Styles, opts CSSOptions) string {
	s = WithDefaults(s)

	var b strings.Builder
	writeModeBlock(&b, s, ModeLight, opts)
	b.WriteString("\n\n")
	writeModeBlock(&b, s, ModeDark, opts)
	b.WriteString("\n\n")
	writeThemeInline(&b, s, opts)
	b.WriteString("\n")
	return b.String()
}

func writeModeBlock(b *strings.Builder, s Styles, mode Mode, opts CSSOptions) {
	props := s.Props(mode)
	if mode == ModeDark {
		b.WriteString(".dark {")
	} else {
		b.WriteString(":root {")
		if opts.IncludeFonts {
			for _, t := range fontTokens {
				fmt.Fprintf(b, "\n  --%s: %s;", t, props[t])
			}
		}
		fmt.Fprintf(b, "\n  --radius: %s;", props["radius"])
	}

	for _, t := range paletteTokens {
		fmt.Fprintf(b, "\n  --%s: %s;", t, props[t])
	}

	shadows := ShadowMap(props)
	for _, name := range shadowNames {
		fmt.Fprintf(b, "\n  --%s: %s;", name, shadows[name])
	}

	if mode == ModeLight {
		fmt.Fprintf(b, "\n  --tracking-normal: %s;", props["letter-spacing"])
		fmt.Fprintf(b, "\n  --spacing: %s;", props[TokenSpacing])
	}
	b.WriteString("\n}")
}

func writeThemeInline(b *strings.Builder, s Styles, opts CSSOptions) {
	b.WriteString("@theme inline {")
	if opts.IncludeFonts {
		b.WriteString("\n  --font-sans: var(--font-sans);")
		b.WriteString("\n  --font-mono: var(--font-mono);")
		b.WriteString("\n  --font-serif: var(--font-serif);\n")
	}
	for _, t := range paletteTokens {
		fmt.Fprintf(b, "\n  --color-%s: var(--%s);", t, t)
	}
	b.WriteString("\n")
	b.WriteString("\n  --radius-sm: calc(var(--radius) - 4px);")
	b.WriteString("\n  --radius-md: calc(var(--radius) - 2px);")
	b.WriteString("\n  --radius-lg: var(--radius);")
	b.WriteString("\n  --radius-xl: calc(var(--radius) + 4px);\n")
	for _, name := range shadowNames {
		fmt.Fprintf(b, "\n  --%s: var(--%s);", name, name)
	}
	b.WriteString("\n")

	if s.Light["letter-spacing"] != "0em" {
		b.WriteString("\n  --tracking-tighter: calc(var(--tracking-normal) - 0.05em);")
		b.WriteString("\n  --tracking-tight: calc(var(--tracking-normal) - 0.025em);")
		b.WriteString("\n  --tracking-normal: var(--tracking-normal);")
		b.WriteString("\n  --tracking-wide: calc(var(--tracking-normal) + 0.025em);")
		b.WriteString("\n  --tracking-wider: calc(var(--tracking-normal) + 0.05em);")
		b.WriteString("\n  --tracking-widest: calc(var(--tracking-normal) + 0.1em);\n")
	}
	b.WriteString("}")
}

// ShadowMap expands the shadow-* tokens of one mode into the eight
// box-shadow presets shadcn/ui components reference.
func ShadowMap(props StyleProps) map[string]string {
	x := orDefault(props["shadow-offset-x"], "0")
	y := orDefault(props["shadow-offset-y"], "1px")
	blur := orDefault(props["shadow-blur"], "3px")
	spread := orDefault(props["shadow-spread"], "0px")
	color := orDefault(props["shadow-color"], "#000000")

	opacity, err := strconv.ParseFloat(props["shadow-opacity"], 64)
	if err != nil {
		opacity = 0.1
	}

	spreadPx, err := strconv.ParseFloat(strings.TrimSuffix(spread, "px"), 64)
	if err != nil {
		spreadPx = 0
	}
	inner := formatPx(spreadPx - 1)

	base := fmt.Sprintf("%s %s %s %s", x, y, blur, spread)
	half := withAlpha(color, opacity*0.5)
	full := withAlpha(color, opacity)
	layered := func(innerY, innerBlur string) string {
		return fmt.Sprintf("%s %s, %s %s %s %s %s", base, full, x, innerY, innerBlur, inner, full)
	}

	return map[string]string{
		"shadow-2xs": base + " " + half,
		"shadow-xs":  base + " " + half,
		"shadow-sm":  layered("1px", "2px"),
		"shadow":     layered("1px", "2px"),
		"shadow-md":  layered("2px", "4px"),
		"shadow-lg":  layered("4px", "6px"),
		"shadow-xl":  layered("8px", "10px"),
		"shadow-2xl": base + " " + withAlpha(color, opacity*2.5),
	}
}

// withAlpha applies an opacity to a colour. Hex colours become rgb() with
// an alpha channel; anything else is mixed with transparent.
func withAlpha(color string, alpha float64) string {
	alpha = min(max(alpha, 0), 1)
	a := strconv.FormatFloat(alpha, 'f', -1, 64)
	if IsHexColor(color) {
		r, _ := strconv.ParseUint(color[1:3], 16, 8)
		g, _ := strconv.ParseUint(color[3:5], 16, 8)
		bl, _ := strconv.ParseUint(color[5:7], 16, 8)
		return fmt.Sprintf("rgb(%d %d %d / %s)", r, g, bl, a)
	}
	return fmt.Sprintf("color-mix(in oklab, %s %s%%, transparent)", color, strconv.FormatFloat(alpha*100, 'f', -1, 64))
}

func formatPx(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
