package handlers

import (
	"strings"
	"testing"
)

func TestValidateThemeName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{"valid", "Ocean Breeze", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"exactly 100", strings.Repeat("a", 100), false},
		{"too long", strings.Repeat("a", 101), true},
		{"multibyte counts runes", strings.Repeat("é", 100), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateThemeName(tt.input)
			if tt.wantError && result == "" {
				t.Error("expected an error, got none")
			}
			if !tt.wantError && result != "" {
				t.Errorf("unexpected error: %s", result)
			}
		})
	}
}
