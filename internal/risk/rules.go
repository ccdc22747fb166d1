package risk

import (
	"fmt"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/matcher"
	"github.com/valpere/kalimax-triage/internal/normalize"
)

// Rule is one entry of the vocabulary table. The canonical term and every
// Creole variant always match as whole phrases in addition to Patterns.
type Rule struct {
	Term     string
	Level    internal.RiskLevel
	Category string
	Reason   string
	Variants []string

	matchers []matcher.Pattern
}

// NewRule compiles a vocabulary rule. Patterns are case-insensitive regular
// expressions matched on word boundaries.
func NewRule(term string, level internal.RiskLevel, category, reason string, patterns, variants []string) (Rule, error) {
	if normalize.Text(term) == "" {
		return Rule{}, fmt.Errorf("%w: risk rule without a term", internal.ErrInvalidArgument)
	}
	if !level.Valid() {
		return Rule{}, fmt.Errorf("%w: risk rule %q has unknown level %q", internal.ErrInvalidArgument, term, level)
	}

	r := Rule{
		Term:     term,
		Level:    level,
		Category: category,
		Reason:   reason,
		Variants: append([]string(nil), variants...),
	}
	for _, expr := range patterns {
		p, err := matcher.NewWords(expr)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: risk rule %q: %v", internal.ErrInvalidArgument, term, err)
		}
		r.matchers = append(r.matchers, p)
	}
	for _, lit := range append([]string{term}, variants...) {
		p, err := matcher.NewLiteral(lit)
		if err != nil {
			continue
		}
		r.matchers = append(r.matchers, p)
	}
	return r, nil
}

func mustRule(term string, level internal.RiskLevel, category, reason string, patterns, variants []string) Rule {
	r, err := NewRule(term, level, category, reason, patterns, variants)
	if err != nil {
		panic(err)
	}
	return r
}

// match returns the first matcher of r that matches text.
func (r Rule) match(text string) (matcher.Pattern, bool) {
	for _, m := range r.matchers {
		if m.Match(text) {
			return m, true
		}
	}
	return matcher.Pattern{}, false
}

func (r Rule) flag(pattern string) internal.RiskFlag {
	return internal.RiskFlag{
		Term:                    r.Term,
		RiskLevel:               r.Level,
		Category:                r.Category,
		Reason:                  r.Reason,
		MatchedPattern:          pattern,
		Variants:                append([]string(nil), r.Variants...),
		RequiresImmediateReview: r.Level.AtLeast(internal.RiskHigh),
	}
}

// structuralRule detects the shape of a dosage or medication instruction
// rather than a named drug. At most one flag is emitted per structural rule.
type structuralRule struct {
	Rule
}

// RuleSet is the immutable rule table consulted by the classifier. Build it
// once at startup and share it; With returns an extended copy.
type RuleSet struct {
	vocabulary []Rule
	structural []structuralRule
}

// NewRuleSet orders the vocabulary by tier, keeping declaration order inside
// each tier.
func NewRuleSet(rules ...Rule) RuleSet {
	var rs RuleSet
	return rs.With(rules...)
}

// With returns a copy of rs with extra vocabulary rules appended to their
// tiers. rs itself is not modified.
func (rs RuleSet) With(rules ...Rule) RuleSet {
	all := make([]Rule, 0, len(rs.vocabulary)+len(rules))
	all = append(all, rs.vocabulary...)
	all = append(all, rules...)

	ordered := make([]Rule, 0, len(all))
	for _, level := range internal.RiskLevels {
		for _, r := range all {
			if r.Level == level {
				ordered = append(ordered, r)
			}
		}
	}
	return RuleSet{
		vocabulary: ordered,
		structural: append([]structuralRule(nil), rs.structural...),
	}
}

// WithStructural returns a copy of rs that also runs the dosage and
// medication shape scanners.
func (rs RuleSet) WithStructural() RuleSet {
	out := rs.With()
	out.structural = defaultStructural()
	return out
}

// Rules returns the vocabulary rules in evaluation order.
func (rs RuleSet) Rules() []Rule {
	return append([]Rule(nil), rs.vocabulary...)
}

// CriticalTerms returns the canonical terms and variants of every Critical
// rule, for the priority scorer's term set.
func (rs RuleSet) CriticalTerms() []string {
	var terms []string
	for _, r := range rs.vocabulary {
		if r.Level != internal.RiskCritical {
			continue
		}
		terms = append(terms, r.Term)
		terms = append(terms, r.Variants...)
	}
	return terms
}

// Analyze returns the risk flags raised by text. It is a pure function of
// text and the rule set: vocabulary flags come first in tier order, then the
// structural flags. Each rule contributes at most one flag.
func (rs RuleSet) Analyze(text string) []internal.RiskFlag {
	text = normalize.Text(text)
	if text == "" {
		return nil
	}

	var flags []internal.RiskFlag
	for _, r := range rs.vocabulary {
		if m, ok := r.match(text); ok {
			flags = append(flags, r.flag(m.String()))
		}
	}
	for _, r := range rs.structural {
		if m, ok := r.match(text); ok {
			flags = append(flags, r.flag(m.String()))
		}
	}
	return flags
}

// DefaultRules returns the built-in rule table with structural scanning.
func DefaultRules() RuleSet {
	return NewRuleSet(defaultVocabulary()...).WithStructural()
}

func defaultVocabulary() []Rule {
	return []Rule{
		// Critical: life-threatening if mistranslated.
		mustRule("cardiac arrest", internal.RiskCritical, "emergency",
			"Life-threatening condition requiring immediate action",
			[]string{`cardiac\s+arrest`, `heart\s+(?:has\s+)?stopped`},
			[]string{"kè a rete", "kè a kanpe"}),
		mustRule("anaphylaxis", internal.RiskCritical, "allergy",
			"Severe allergic reaction, potentially fatal",
			[]string{`anaphylaxis`, `anaphylactic\s+(?:shock|reaction)`},
			[]string{"gwo alèji", "alèji grav"}),
		mustRule("stroke", internal.RiskCritical, "neurological",
			"Brain emergency requiring immediate treatment",
			[]string{`strokes?`, `cerebral\s+infarction`},
			[]string{"atak serebral", "konjesyon serebral"}),
		mustRule("overdose", internal.RiskCritical, "toxicology",
			"Drug overdose can be fatal",
			[]string{`overdos(?:e|ed|ing)`, `too\s+much\s+medication`},
			[]string{"twòp medikaman", "sèdòz"}),
		mustRule("suicidal ideation", internal.RiskCritical, "mental_health",
			"Suicide risk requires immediate intervention",
			[]string{`suicid(?:e|al)`, `kill\s+myself`, `end\s+my\s+life`},
			[]string{"touye tèt li", "swisid"}),

		// High: serious medical consequences.
		mustRule("insulin", internal.RiskHigh, "medication",
			"Incorrect insulin dosage can be dangerous",
			[]string{`insulin`, `diabetic\s+medication`},
			[]string{"ensilin", "medikaman dyabèt"}),
		mustRule("blood pressure", internal.RiskHigh, "cardiovascular",
			"Blood pressure management is critical",
			[]string{`blood\s+pressure`, `hypertension`},
			[]string{"tansyon", "presyon san"}),
		mustRule("pregnancy", internal.RiskHigh, "obstetrics",
			"Pregnancy-related care requires precision",
			[]string{`pregnant`, `pregnancy`, `expecting\s+a\s+baby`},
			[]string{"gwosès", "ansent"}),
		mustRule("chemotherapy", internal.RiskHigh, "oncology",
			"Cancer treatment requires precise communication",
			[]string{`chemotherapy`, `chemo`, `cancer\s+treatment`},
			[]string{"chimyoterapi", "tretman kansè"}),
		mustRule("anticoagulant", internal.RiskHigh, "medication",
			"Blood thinner dosing errors cause bleeding or clots",
			[]string{`anticoagulants?`, `blood\s+thinners?`, `warfarin`},
			[]string{"medikaman pou san an pa kaye"}),
		mustRule("seizure", internal.RiskHigh, "neurological",
			"Seizure instructions must be followed exactly",
			[]string{`seizures?`, `convulsions?`, `epilep(?:sy|tic)`},
			[]string{"kriz malkadi", "malkadi"}),
		mustRule("chest pain", internal.RiskHigh, "triage",
			"Possible cardiac symptom that decides whether to seek emergency care",
			[]string{`chest\s+(?:pain|tightness)`},
			[]string{"doulè nan pwatrin"}),
		mustRule("emergency call", internal.RiskHigh, "triage",
			"Escalation instruction; a mistranslation can delay emergency care",
			[]string{`call\s+911`, `call\s+(?:an\s+)?ambulance`, `(?:go\s+to|visit)\s+the\s+emergency\s+(?:room|department)`,
				`seek\s+(?:immediate|emergency)\s+(?:medical\s+)?(?:care|attention|help)`},
			[]string{"rele 911", "rele anbilans", "ale nan ijans"}),

		// Moderate: important but not life-threatening.
		mustRule("antibiotic", internal.RiskModerate, "medication",
			"Antibiotic resistance and allergies are concerns",
			[]string{`antibiotics?`, `penicillin`, `amoxicillin`},
			[]string{"antibiyotik"}),
		mustRule("surgery", internal.RiskModerate, "procedure",
			"Surgical procedures require clear communication",
			[]string{`surgery`, `surgical`, `operation`, `procedure`},
			[]string{"operasyon", "chiriji"}),
		mustRule("vaccination", internal.RiskModerate, "prevention",
			"Vaccine schedules and contraindications must be clear",
			[]string{`vaccines?`, `vaccination`, `immuni[sz]ation`},
			[]string{"vaksen"}),
	}
}

func defaultStructural() []structuralRule {
	return []structuralRule{
		{mustRule("medication_dosage", internal.RiskHigh, "medication",
			"Medication dosage requires precise translation",
			[]string{
				`\d+(?:[.,]\d+)?\s*mg`,
				`\d+(?:[.,]\d+)?\s*ml`,
				`take\s+\d+`,
				`every\s+\d+\s+hours?`,
				`(?:once|twice)\s+(?:a\s+day|daily)`,
				`three\s+times\s+(?:a\s+day|daily)`,
				`(?:before|after)\s+meals`,
				`with\s+food`,
				`on\s+(?:an\s+)?empty\s+stomach`,
				`pran\s+\d+`,
				`\d+\s+fwa\s+pa\s+jou`,
			},
			[]string{"dòz medikaman", "kantite medikaman"})},
		{mustRule("dosage_instruction", internal.RiskHigh, "dosage",
			"Dosage instructions must be translated accurately",
			[]string{
				`\d+\s*tablets?`,
				`\d+\s*capsules?`,
				`\d+\s*drops?`,
				`\d+\s*teaspoons?`,
				`\d+\s*tablespoons?`,
				`(?:half|quarter)\s+(?:a\s+)?tablet`,
				`\d+\s*grenn`,
				`\d+\s*gout`,
			},
			[]string{"enstriksyon dòz", "jan pou pran"})},
	}
}
