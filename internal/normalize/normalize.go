// Package normalize prepares entry text for pattern matching.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Text trims whitespace, collapses internal runs of whitespace to a single
// space, and applies Unicode NFC normalization so that decomposed Creole
// diacritics (o + U+0300) compare equal to their precomposed forms.
func Text(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}

// Fold is Text followed by lower-casing.
func Fold(text string) string {
	return strings.ToLower(Text(text))
}

// Join folds and joins the non-empty parts with a single space.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = Fold(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
