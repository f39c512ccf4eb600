package theme

import "strings"

// FontCategory is the generic family a font falls back to.
type FontCategory string

const (
	FontSans  FontCategory = "sans-serif"
	FontSerif FontCategory = "serif"
	FontMono  FontCategory = "monospace"
)

// FontCatalog lists the families offered in the editor's font pickers.
// Generation may use any Google Font; the catalog is what the editor knows
// how to load without a lookup.
var FontCatalog = map[FontCategory][]string{
	FontSans: {
		"Inter", "Roboto", "Open Sans", "Poppins", "Montserrat", "Outfit",
		"Plus Jakarta Sans", "DM Sans", "IBM Plex Sans", "Geist", "Oxanium",
		"Architects Daughter",
	},
	FontSerif: {
		"Georgia", "Merriweather", "Playfair Display", "Lora", "Source Serif Pro",
		"Source Serif 4", "Libre Baskerville", "Space Grotesk",
	},
	FontMono: {
		"JetBrains Mono", "Fira Code", "Source Code Pro", "IBM Plex Mono",
		"Roboto Mono", "Space Mono", "Geist Mono",
	},
}

var fontIndex = func() map[string]FontCategory {
	idx := make(map[string]FontCategory)
	for cat, names := range FontCatalog {
		for _, n := range names {
			idx[strings.ToLower(n)] = cat
		}
	}
	return idx
}()

// PrimaryFamily returns the first family of a CSS font stack, unquoted.
// "'Plus Jakarta Sans', sans-serif" yields "Plus Jakarta Sans".
func PrimaryFamily(stack string) string {
	first, _, _ := strings.Cut(stack, ",")
	return strings.Trim(strings.TrimSpace(first), `"'`)
}

// ResolveFont looks up the primary family of a font stack in the catalog.
func ResolveFont(stack string) (family string, cat FontCategory, ok bool) {
	family = PrimaryFamily(stack)
	cat, ok = fontIndex[strings.ToLower(family)]
	return family, cat, ok
}

// FontStack builds the CSS value stored for a catalog family.
func FontStack(family string, cat FontCategory) string {
	return family + ", " + string(cat)
}
