// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package theme

// Accumulator merges successive partial theme objects from a stream.
// Each Apply only validates tokens that are new or whose value changed
// since the previous fragment, so a long stream costs O(1) amortized
// validation per fragment. A rejected fragment leaves the state untouched.
type Accumulator struct {
	light StyleProps
	dark  StyleProps
	seen  map[Mode]bool
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		light: StyleProps{},
		dark:  StyleProps{},
		seen:  map[Mode]bool{},
	}
}

type tokenUpdate struct {
	mode  Mode
	token string
	value string
}

// Apply validates and merges a partial object. It reports whether the
// accumulated theme changed.
func (a *Accumulator) Apply(partial map[string]any) (bool, error) {
	var updates []tokenUpdate
	var newModes []Mode

	for key, raw := range partial {
		props, err := modeObject(key, raw)
		if err != nil {
			return false, err
		}
		mode := Mode(key)
		if !a.seen[mode] {
			newModes = append(newModes, mode)
		}
		current := a.props(mode)
		for token, v := range props {
			if s, ok := v.(string); ok {
				if old, exists := current[token]; exists && old == s {
					continue
				}
			}
			if err := checkPartialToken(key, token, v); err != nil {
				return false, err
			}
			updates = append(updates, tokenUpdate{mode: mode, token: token, value: v.(string)})
		}
	}

	for _, m := range newModes {
		a.seen[m] = true
	}
	for _, u := range updates {
		a.props(u.mode)[u.token] = u.value
	}
	return len(updates) > 0 || len(newModes) > 0, nil
}

// Snapshot returns a copy of the accumulated object in its streamed shape.
// Modes that have not started streaming are omitted.
func (a *Accumulator) Snapshot() map[string]any {
	out := make(map[string]any, 2)
	for _, m := range Modes {
		if !a.seen[m] {
			continue
		}
		src := a.props(m)
		props := make(map[string]any, len(src))
		for k, v := range src {
			props[k] = v
		}
		out[string(m)] = props
	}
	return out
}

// Final runs the strict end-of-stream check on the accumulated object.
func (a *Accumulator) Final() (Styles, error) {
	return ValidateFinal(a.Snapshot())
}

func (a *Accumulator) props(m Mode) StyleProps {
	if m == ModeDark {
		return a.dark
	}
	return a.light
}
