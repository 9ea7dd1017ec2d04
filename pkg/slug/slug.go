// Package slug normalizes free text into URL path segments such as
// storefront usernames.
package slug

import (
	"regexp"
	"strings"
)

// MaxLength is the longest slug Username will return.
const MaxLength = 40

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

	// Latin accents common in Portuguese and Spanish business names.
	accents = strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"í", "i", "ì", "i", "î", "i", "ï", "i",
		"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
		"ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ç", "c", "ñ", "n",
	)
)

// Generate lowercases name, transliterates accents and joins the
// alphanumeric runs with single hyphens.
//
//	"Café & Pão" → "cafe-pao"
func Generate(name string) string {
	s := accents.Replace(strings.ToLower(strings.TrimSpace(name)))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Username is Generate capped at MaxLength, never ending in a hyphen.
func Username(name string) string {
	s := Generate(name)
	if len(s) > MaxLength {
		s = strings.TrimRight(s[:MaxLength], "-")
	}
	return s
}
