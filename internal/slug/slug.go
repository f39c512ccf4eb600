// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns theme names into ASCII file names.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength caps a generated slug.
const MaxLength = 64

// Fallback is returned when nothing of the input survives.
const Fallback = "theme"

// Generate creates a lowercase, hyphen-separated slug from s. Accents are
// folded ("Café" becomes "cafe"); other non-ASCII letters are dropped.
// Example: "Ocean Breeze 2.0!" → "ocean-breeze-2-0"
func Generate(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r):
			pendingHyphen = true
		}
		if b.Len() >= MaxLength {
			break
		}
	}

	out := strings.TrimRight(b.String(), "-")
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	if out == "" {
		return Fallback
	}
	return out
}
