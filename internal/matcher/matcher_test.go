package matcher

import (
	"reflect"
	"testing"
)

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		text    string
		want    bool
	}{
		{"whole word", Words(`stroke`), "signs of a stroke today", true},
		{"inside word", Words(`stroke`), "brushstrokes", false},
		{"case insensitive", Words(`insulin`), "INSULIN pen", true},
		{"accented end", Words(`milò`), "moun milò yo", true},
		{"accented neighbour", Words(`mil`), "moun milò yo", false},
		{"accented start", Words(`èt`), "bèt la", false},
		{"later occurrence bounded", Words(`pen`), "happen, then pen", true},
		{"literal spacing", Literal("kè a rete"), "kè  a\trete", true},
		{"literal metacharacters", Literal("c.a.r"), "cxaxr", false},
		{"regex unbounded", Regex(`mg`), "5mg", true},
		{"regex anchors", Regex(`^\p{L}.*\.$`), "dèyè mòn gen mòn.", true},
		{"regex anchors miss", Regex(`^\p{L}.*\.$`), "dèyè mòn gen mòn", false},
		{"numeric dose", Words(`\d+\s*mg`), "take 500 mg daily", true},
		{"shorter alternative", Words(`overdos(?:e|ed|ing)`), "the patient overdosed", true},
		{"longer alternative", Words(`overdos(?:e|ed|ing)`), "overdosing on pills", true},
		{"inflection not listed", Words(`overdos(?:e|ed|ing)`), "overdoses", false},
		{"overlapping candidate", Words(`kou(?:\s.*)?\skout`), "akou kou kout", true},
		{"greedy span past a word", Words(`si(?:\s.*)?\ssi`), "si ou manje si ou sispann", true},
		{"greedy span only inside words", Words(`si(?:\s.*)?\ssi`), "si ou sispann", false},
		{"top-level alternation bounded", Words(`mg|ml`), "5 mlx", false},
		{"zero value", Pattern{}, "anything", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pattern.Match(tt.text); got != tt.want {
				t.Errorf("%s on %q: expected %v, got %v", tt.pattern, tt.text, tt.want, got)
			}
		})
	}
}

func TestConstructors_Errors(t *testing.T) {
	if _, err := NewWords(""); err == nil {
		t.Error("expected error for empty pattern")
	}
	if _, err := NewRegex("(unclosed"); err == nil {
		t.Error("expected error for invalid pattern")
	}
	if _, err := NewLiteral("   "); err == nil {
		t.Error("expected error for blank literal")
	}
	if got := Literal("  chest   pain ").String(); got != "chest pain" {
		t.Errorf("unexpected literal string %q", got)
	}
}

func TestTable(t *testing.T) {
	table := Table{
		{Tag: "family", Matcher: Literal("manman")},
		{Tag: "food", Matcher: Literal("diri")},
		{Tag: "food", Matcher: Literal("pwa"), Weight: 2},
		{Tag: "family", Matcher: Literal("papa")},
	}

	if got := table.Tags(); !reflect.DeepEqual(got, []string{"family", "food"}) {
		t.Errorf("unexpected tags %v", got)
	}

	scores := table.Scores("manman fè diri ak pwa")
	want := []Score{{Tag: "family", Score: 1}, {Tag: "food", Score: 3}}
	if !reflect.DeepEqual(scores, want) {
		t.Errorf("expected %v, got %v", want, scores)
	}

	tests := []struct {
		text  string
		best  string
		first string
	}{
		{"manman fè diri ak pwa", "food", "family"},
		{"manman ak diri", "family", "family"},
		{"diri sèlman", "food", "food"},
		{"anyen", "idiom", "idiom"},
	}
	for _, tt := range tests {
		if got := table.Best(tt.text, "idiom"); got != tt.best {
			t.Errorf("Best(%q): expected %q, got %q", tt.text, tt.best, got)
		}
		if got := table.First(tt.text, "idiom"); got != tt.first {
			t.Errorf("First(%q): expected %q, got %q", tt.text, tt.first, got)
		}
	}
}
