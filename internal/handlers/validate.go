package handlers

import (
	"strings"
	"unicode/utf8"

	"tweakgen/internal/models"
)

// validateThemeName checks a theme name and returns the first error found.
func validateThemeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Theme name is required."
	}
	if utf8.RuneCountInString(name) > models.MaxThemeNameLength {
		return "Theme name is too long (max 100 characters)."
	}
	return ""
}
