// Package chunker splits ordered lists into bounded chunks without
// reordering them, and cuts long entry texts into short display snippets
// that end on a word boundary.
package chunker

import (
	"strings"
	"unicode"
)

const (
	// DefaultSnippetChars is the snippet length used when none is given.
	DefaultSnippetChars = 60

	ellipsis = "..."
)

// Chunk splits items into consecutive pieces of at most size elements.
// Order is preserved and only the last piece may be shorter. If size ≤ 0
// the whole slice is returned as a single chunk; an empty input yields no
// chunks.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || len(items) <= size {
		return [][]T{items}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Snippet returns text with whitespace folded, cut to at most maxChars
// unicode code points. Cuts happen at the last whitespace before the limit
// when there is one, and are marked with "...". If maxChars ≤ 0,
// DefaultSnippetChars is used.
func Snippet(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultSnippetChars
	}
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	cut := maxChars
	for i := maxChars; i > 0; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])) + ellipsis
}
