// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestStreamObject_EmitsDistinctPartials(t *testing.T) {
	mock := &mockProvider{
		name: "mock",
		chunks: []Chunk{
			{TextDelta: `{"light":{"primary":"#11`},
			{TextDelta: `2233","background":"#fff`},
			{TextDelta: `fff"}}`},
			{TextDelta: "\n"},
		},
		usage: Usage{PromptTokens: 7, CompletionTokens: 11},
	}

	var seen []string
	res, err := StreamObject(context.Background(), mock, ChatRequest{
		Schema: map[string]any{"type": "object"},
		Tools:  []Tool{themeTool},
	}, func(partial map[string]any) error {
		b, _ := json.Marshal(partial)
		seen = append(seen, string(b))
		return nil
	})
	if err != nil {
		t.Fatalf("StreamObject: %v", err)
	}

	want := []string{
		`{"light":{"primary":"#11"}}`,
		`{"light":{"background":"#fff","primary":"#112233"}}`,
		`{"light":{"background":"#ffffff","primary":"#112233"}}`,
	}
	if strings.Join(seen, "\n") != strings.Join(want, "\n") {
		t.Errorf("partials:\n got %v\nwant %v", seen, want)
	}
	if res.Usage.Total() != 18 {
		t.Errorf("usage: got %+v", res.Usage)
	}
	light := res.Object["light"].(map[string]any)
	if light["background"] != "#ffffff" {
		t.Errorf("final object: got %v", res.Object)
	}
	if mock.lastReq.Tools != nil {
		t.Error("tools must not be offered to the object call")
	}
}

func TestStreamObject_RequiresSchema(t *testing.T) {
	_, err := StreamObject(context.Background(), &mockProvider{}, ChatRequest{}, func(map[string]any) error { return nil })
	if err == nil {
		t.Fatal("expected error without schema")
	}
}

func TestStreamObject_PropagatesErrors(t *testing.T) {
	t.Run("provider", func(t *testing.T) {
		boom := &ProviderError{Provider: "mock", Code: ErrCodeServerError}
		_, err := StreamObject(context.Background(), &mockProvider{err: boom}, ChatRequest{Schema: map[string]any{}}, func(map[string]any) error { return nil })
		if !errors.Is(err, boom) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("callback", func(t *testing.T) {
		stop := errors.New("stop")
		mock := &mockProvider{chunks: []Chunk{{TextDelta: `{"a":"b"}`}}}
		_, err := StreamObject(context.Background(), mock, ChatRequest{Schema: map[string]any{}}, func(map[string]any) error { return stop })
		if !errors.Is(err, stop) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestReadSSE(t *testing.T) {
	in := ": keep-alive\n" +
		"event: ping\ndata: one\n\n" +
		"data: two\ndata: lines\n\n" +
		"data: [DONE]\n\n" +
		"data: after\n\n"

	var got []string
	err := readSSE(strings.NewReader(in), func(event, data string) error {
		got = append(got, event+"="+data)
		return nil
	})
	if err != nil {
		t.Fatalf("readSSE: %v", err)
	}
	want := "ping=one|=two\nlines"
	if strings.Join(got, "|") != want {
		t.Errorf("events: got %q, want %q", strings.Join(got, "|"), want)
	}
}

func TestParseDataURL(t *testing.T) {
	tests := []struct {
		name, in, mime, data string
		wantErr              bool
	}{
		{"base64", "data:image/png;base64,aGVsbG8=", "image/png", "hello", false},
		{"url encoded svg", "data:image/svg+xml,%3Csvg%3E%3C%2Fsvg%3E", "image/svg+xml", "<svg></svg>", false},
		{"charset param", "data:image/svg+xml;charset=utf-8,%3Csvg%2F%3E", "image/svg+xml", "<svg/>", false},
		{"not data", "https://example.com/a.png", "", "", true},
		{"bad base64", "data:image/png;base64,@@@", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mime, data, err := ParseDataURL(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDataURL: %v", err)
			}
			if mime != tt.mime || string(data) != tt.data {
				t.Errorf("got (%q, %q), want (%q, %q)", mime, data, tt.mime, tt.data)
			}
		})
	}
}
