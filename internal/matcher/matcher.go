// Package matcher provides case-insensitive text patterns whose word
// boundaries are Unicode aware, and ordered rule tables built from them.
//
// RE2's \b only treats ASCII letters as word characters, so a pattern such
// as `milò` never matches at the end of a word. Word patterns are wrapped in
// explicit boundary groups over Unicode letters, marks and digits instead.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Matcher reports whether a pattern occurs in text.
type Matcher interface {
	Match(text string) bool
	String() string
}

// wordClass is the set of runes that continue a word.
const wordClass = `\p{L}\p{M}\p{Nd}_`

// Pattern is a compiled, case-insensitive regular expression.
type Pattern struct {
	expr string
	re   *regexp.Regexp
}

// NewWords compiles expr so that a match must start and end on word
// boundaries.
func NewWords(expr string) (Pattern, error) {
	return compile(expr, true)
}

// NewRegex compiles expr as is. Anchors and classes inside expr are
// honoured; no boundary check is applied.
func NewRegex(expr string) (Pattern, error) {
	return compile(expr, false)
}

// NewLiteral matches s as a whole phrase. Internal whitespace matches any
// run of whitespace.
func NewLiteral(s string) (Pattern, error) {
	fields := strings.Fields(norm.NFC.String(s))
	if len(fields) == 0 {
		return Pattern{}, fmt.Errorf("empty literal")
	}
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	p, err := compile(strings.Join(fields, `\s+`), true)
	if err != nil {
		return Pattern{}, err
	}
	p.expr = strings.Join(strings.Fields(s), " ")
	return p, nil
}

func Words(expr string) Pattern { return must(NewWords(expr)) }

func Regex(expr string) Pattern { return must(NewRegex(expr)) }

func Literal(s string) Pattern { return must(NewLiteral(s)) }

func (p Pattern) String() string { return p.expr }

func compile(expr string, bounded bool) (Pattern, error) {
	if strings.TrimSpace(expr) == "" {
		return Pattern{}, fmt.Errorf("empty pattern")
	}
	body := norm.NFC.String(expr)
	if _, err := regexp.Compile(body); err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	if bounded {
		body = `(?:^|[^` + wordClass + `])(?:` + body + `)(?:$|[^` + wordClass + `])`
	}
	re, err := regexp.Compile("(?i)" + body)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return Pattern{expr: expr, re: re}, nil
}

func must(p Pattern, err error) Pattern {
	if err != nil {
		panic(err)
	}
	return p
}

// Match reports whether the pattern occurs in text. Text is expected to be
// NFC normalized already; see package normalize.
func (p Pattern) Match(text string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(text)
}
