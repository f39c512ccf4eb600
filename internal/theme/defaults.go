// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

// sharedDefaults holds the non-colour tokens common to both modes.
var sharedDefaults = StyleProps{
	"font-sans":       "Inter, sans-serif",
	"font-serif":      "Source Serif 4, serif",
	"font-mono":       "JetBrains Mono, monospace",
	"radius":          "0.625rem",
	"shadow-color":    "oklch(0 0 0)",
	"shadow-opacity":  "0.1",
	"shadow-blur":     "3px",
	"shadow-spread":   "0px",
	"shadow-offset-x": "0",
	"shadow-offset-y": "1px",
	"letter-spacing":  "0em",
	"spacing":         "0.25rem",
}

var defaultLight = StyleProps{
	"background":                 "oklch(1 0 0)",
	"foreground":                 "oklch(0.145 0 0)",
	"card":                       "oklch(1 0 0)",
	"card-foreground":            "oklch(0.145 0 0)",
	"popover":                    "oklch(1 0 0)",
	"popover-foreground":         "oklch(0.145 0 0)",
	"primary":                    "oklch(0.205 0 0)",
	"primary-foreground":         "oklch(0.985 0 0)",
	"secondary":                  "oklch(0.97 0 0)",
	"secondary-foreground":       "oklch(0.205 0 0)",
	"muted":                      "oklch(0.97 0 0)",
	"muted-foreground":           "oklch(0.556 0 0)",
	"accent":                     "oklch(0.97 0 0)",
	"accent-foreground":          "oklch(0.205 0 0)",
	"destructive":                "oklch(0.577 0.245 27.325)",
	"destructive-foreground":     "oklch(1 0 0)",
	"border":                     "oklch(0.922 0 0)",
	"input":                      "oklch(0.922 0 0)",
	"ring":                       "oklch(0.708 0 0)",
	"chart-1":                    "oklch(0.646 0.222 41.116)",
	"chart-2":                    "oklch(0.6 0.118 184.704)",
	"chart-3":                    "oklch(0.398 0.07 227.392)",
	"chart-4":                    "oklch(0.828 0.189 84.429)",
	"chart-5":                    "oklch(0.769 0.188 70.08)",
	"sidebar":                    "oklch(0.985 0 0)",
	"sidebar-foreground":         "oklch(0.145 0 0)",
	"sidebar-primary":            "oklch(0.205 0 0)",
	"sidebar-primary-foreground": "oklch(0.985 0 0)",
	"sidebar-accent":             "oklch(0.97 0 0)",
	"sidebar-accent-foreground":  "oklch(0.205 0 0)",
	"sidebar-border":             "oklch(0.922 0 0)",
	"sidebar-ring":               "oklch(0.708 0 0)",
}

var defaultDark = StyleProps{
	"background":                 "oklch(0.145 0 0)",
	"foreground":                 "oklch(0.985 0 0)",
	"card":                       "oklch(0.205 0 0)",
	"card-foreground":            "oklch(0.985 0 0)",
	"popover":                    "oklch(0.269 0 0)",
	"popover-foreground":         "oklch(0.985 0 0)",
	"primary":                    "oklch(0.922 0 0)",
	"primary-foreground":         "oklch(0.205 0 0)",
	"secondary":                  "oklch(0.269 0 0)",
	"secondary-foreground":       "oklch(0.985 0 0)",
	"muted":                      "oklch(0.269 0 0)",
	"muted-foreground":           "oklch(0.708 0 0)",
	"accent":                     "oklch(0.371 0 0)",
	"accent-foreground":          "oklch(0.985 0 0)",
	"destructive":                "oklch(0.704 0.191 22.216)",
	"destructive-foreground":     "oklch(0.985 0 0)",
	"border":                     "oklch(0.275 0 0)",
	"input":                      "oklch(0.325 0 0)",
	"ring":                       "oklch(0.556 0 0)",
	"chart-1":                    "oklch(0.488 0.243 264.376)",
	"chart-2":                    "oklch(0.696 0.17 162.48)",
	"chart-3":                    "oklch(0.769 0.188 70.08)",
	"chart-4":                    "oklch(0.627 0.265 303.9)",
	"chart-5":                    "oklch(0.645 0.246 16.439)",
	"sidebar":                    "oklch(0.205 0 0)",
	"sidebar-foreground":         "oklch(0.985 0 0)",
	"sidebar-primary":            "oklch(0.488 0.243 264.376)",
	"sidebar-primary-foreground": "oklch(0.985 0 0)",
	"sidebar-accent":             "oklch(0.269 0 0)",
	"sidebar-accent-foreground":  "oklch(0.985 0 0)",
	"sidebar-border":             "oklch(0.275 0 0)",
	"sidebar-ring":               "oklch(0.439 0 0)",
}

// DefaultStyles returns a fresh copy of the stock shadcn/ui theme.
func DefaultStyles() Styles {
	s := Styles{Light: StyleProps{}, Dark: StyleProps{}}
	for k, v := range sharedDefaults {
		s.Light[k] = v
		s.Dark[k] = v
	}
	for k, v := range defaultLight {
		s.Light[k] = v
	}
	for k, v := range defaultDark {
		s.Dark[k] = v
	}
	return s
}

// WithDefaults fills tokens missing from s with the stock values. Generated
// themes never carry spacing, so this is applied before rendering CSS.
func WithDefaults(s Styles) Styles {
	out := DefaultStyles()
	for k, v := range s.Light {
		out.Light[k] = v
	}
	for k, v := range s.Dark {
		out.Dark[k] = v
	}
	return out
}
