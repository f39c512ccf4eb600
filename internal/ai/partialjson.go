// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"encoding/json"
	"strings"
)

// ParsePartialJSON parses the object a model has emitted so far. Text
// before the first '{' (e.g. a ```json fence) is skipped. An incomplete
// document is repaired by closing the open string and containers, or by
// cutting back to the last complete value. It returns false when nothing
// usable has arrived yet.
func ParsePartialJSON(text string) (map[string]any, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}
	s := text[start:]

	var obj map[string]any
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&obj); err == nil {
		return obj, true
	}

	fixed, ok := repairJSON(s)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(fixed), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// Container states while scanning.
const (
	stKey   = iota // object: expecting a key or '}'
	stColon        // object: key read, expecting ':'
	stValue        // expecting a value
	stComma        // value read, expecting ',' or a closer
)

type jsonFrame struct {
	closer byte
	state  int
}

// repairJSON returns a syntactically complete prefix-derived version of s.
func repairJSON(s string) (string, bool) {
	var (
		stack     []jsonFrame
		inStr     bool
		esc       bool
		strIsKey  bool
		inTok     bool
		tokStart  int
		safeEnd   = -1
		safeStack []jsonFrame
	)

	markSafe := func(end int) {
		safeEnd = end
		safeStack = append(safeStack[:0], stack...)
	}
	valueDone := func(end int) {
		if n := len(stack); n > 0 {
			stack[n-1].state = stComma
		}
		markSafe(end)
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
				if strIsKey {
					stack[len(stack)-1].state = stColon
				} else {
					valueDone(i + 1)
				}
			}
			continue
		}
		if inTok {
			if isTokenByte(c) {
				continue
			}
			inTok = false
			if !json.Valid([]byte(s[tokStart:i])) {
				break
			}
			valueDone(i)
		}

		switch c {
		case ' ', '\t', '\n', '\r':
		case '{':
			stack = append(stack, jsonFrame{closer: '}', state: stKey})
			markSafe(i + 1)
		case '[':
			stack = append(stack, jsonFrame{closer: ']', state: stValue})
			markSafe(i + 1)
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1].closer != c {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[:i+1], true
			}
			valueDone(i + 1)
		case ':':
			if len(stack) > 0 {
				stack[len(stack)-1].state = stValue
			}
		case ',':
			if len(stack) > 0 {
				top := &stack[len(stack)-1]
				if top.closer == '}' {
					top.state = stKey
				} else {
					top.state = stValue
				}
			}
		case '"':
			if len(stack) == 0 {
				return "", false
			}
			inStr = true
			top := stack[len(stack)-1]
			strIsKey = top.closer == '}' && top.state == stKey
		default:
			inTok = true
			tokStart = i
		}
	}

	switch {
	case inStr && !strIsKey:
		body := s
		if esc {
			body = body[:len(body)-1]
		}
		candidate := body + `"` + closers(stack)
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	case inTok:
		if tok := s[tokStart:]; json.Valid([]byte(tok)) {
			candidate := s + closers(stack)
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
	}

	if safeEnd < 0 {
		return "", false
	}
	return s[:safeEnd] + closers(safeStack), true
}

func closers(stack []jsonFrame) string {
	b := make([]byte, 0, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		b = append(b, stack[i].closer)
	}
	return string(b)
}

func isTokenByte(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c == '-' || c == '+' || c == '.' || c == 'E'
}
