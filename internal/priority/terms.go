package priority

import (
	"strings"

	"github.com/valpere/kalimax-triage/internal/matcher"
	"github.com/valpere/kalimax-triage/internal/normalize"
)

// TermSet is an immutable set of critical terms matched as whole words,
// case-insensitively. Build it from the classifier's critical rules so that
// a Critical priority always implies a critical risk flag.
type TermSet struct {
	terms    []string
	patterns []matcher.Pattern
}

// NewTermSet builds a set from terms. Blank and duplicate terms are dropped.
func NewTermSet(terms ...string) TermSet {
	var ts TermSet
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		key := normalize.Fold(t)
		if key == "" || seen[key] {
			continue
		}
		p, err := matcher.NewLiteral(key)
		if err != nil {
			continue
		}
		seen[key] = true
		ts.terms = append(ts.terms, key)
		ts.patterns = append(ts.patterns, p)
	}
	return ts
}

// Len returns the number of distinct terms.
func (ts TermSet) Len() int { return len(ts.terms) }

// Terms returns the folded terms in insertion order.
func (ts TermSet) Terms() []string {
	return append([]string(nil), ts.terms...)
}

// Match returns the first term found in text.
func (ts TermSet) Match(text string) (string, bool) {
	text = normalize.Text(text)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for i, p := range ts.patterns {
		if p.Match(text) {
			return ts.terms[i], true
		}
	}
	return "", false
}

// Contains reports whether text contains any term of the set.
func (ts TermSet) Contains(text string) bool {
	_, ok := ts.Match(text)
	return ok
}
