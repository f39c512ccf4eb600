// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ObjectResult is the outcome of a StreamObject call.
type ObjectResult struct {
	// Object is the last parse of the complete output; nil when the model
	// produced nothing parseable.
	Object map[string]any
	Raw    string
	Usage  Usage
}

// ObjectFunc receives each distinct partial object as it grows.
type ObjectFunc func(partial map[string]any) error

// StreamObject asks p for a JSON object matching req.Schema and reports
// every distinct partial parse to fn. Identical consecutive parses are
// suppressed. No schema validation happens here; callers own that.
func StreamObject(ctx context.Context, p Provider, req ChatRequest, fn ObjectFunc) (*ObjectResult, error) {
	if req.Schema == nil {
		return nil, fmt.Errorf("ai: StreamObject requires a schema")
	}
	req.Tools = nil

	var (
		buf  strings.Builder
		last string
		obj  map[string]any
	)
	resp, err := p.Stream(ctx, req, func(c Chunk) error {
		if c.TextDelta == "" {
			return nil
		}
		buf.WriteString(c.TextDelta)

		partial, ok := ParsePartialJSON(buf.String())
		if !ok {
			return nil
		}
		key, err := json.Marshal(partial)
		if err != nil || string(key) == last {
			return nil
		}
		last = string(key)
		obj = partial
		return fn(partial)
	})
	if err != nil {
		return nil, err
	}

	out := &ObjectResult{Raw: buf.String(), Usage: resp.Usage}
	if final, ok := ParsePartialJSON(out.Raw); ok {
		out.Object = final
	} else {
		out.Object = obj
	}
	return out, nil
}
