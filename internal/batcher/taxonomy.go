package batcher

import (
	"slices"

	"github.com/valpere/kalimax-triage/internal/matcher"
	"github.com/valpere/kalimax-triage/internal/normalize"
)

// Region is a Haitian dialect region.
type Region string

const (
	RegionOuest      Region = "ouest"
	RegionNord       Region = "nord"
	RegionSud        Region = "sud"
	RegionArtibonite Region = "artibonite"
	RegionCentre     Region = "centre"
	RegionGrandAnse  Region = "grand_anse"
	RegionNippes     Region = "nippes"
	RegionNordEst    Region = "nord_est"
	RegionNordOuest  Region = "nord_ouest"
	RegionSudEst     Region = "sud_est"
	RegionGeneral    Region = "general"
)

// ExpressionType is the kind of cultural expression.
type ExpressionType string

const (
	TypeIdiom           ExpressionType = "idiom"
	TypeProverb         ExpressionType = "proverb"
	TypeMedicalCultural ExpressionType = "medical_cultural"
	TypeReligious       ExpressionType = "religious"
	TypeSocial          ExpressionType = "social"
	TypeFamily          ExpressionType = "family"
	TypeFood            ExpressionType = "food"
	TypeWeather         ExpressionType = "weather"
	TypeWork            ExpressionType = "work"
	TypeCelebration     ExpressionType = "celebration"
)

const defaultExpert = "cultural_linguist"

var defaultCriteria = []string{
	"Verify translation accuracy",
	"Check cultural appropriateness",
	"Confirm regional usage",
	"Validate context suitability",
}

// Taxonomy holds the classification tables and routing lookups of the
// batcher. It is built once and never modified.
type Taxonomy struct {
	regions  matcher.Table
	types    matcher.Table
	major    map[Region]bool
	experts  map[ExpressionType]string
	weights  map[ExpressionType]int
	criteria map[ExpressionType][]string
}

// Classify assigns a region and an expression type to an expression. The
// region is decided by the first matching region in precedence order; the
// type is the one with the highest summed pattern weight, earliest declared
// on a tie. Unmatched text falls back to general and idiom.
func (t Taxonomy) Classify(creole, english, note string) (Region, ExpressionType) {
	text := normalize.Join(creole, english, note)
	region := Region(t.regions.First(text, string(RegionGeneral)))
	typ := ExpressionType(t.types.Best(text, string(TypeIdiom)))
	return region, typ
}

// Regions returns every region in precedence order, general last.
func (t Taxonomy) Regions() []Region {
	var out []Region
	for _, tag := range t.regions.Tags() {
		out = append(out, Region(tag))
	}
	if !slices.Contains(out, RegionGeneral) {
		out = append(out, RegionGeneral)
	}
	return out
}

// Types returns every expression type in declaration order.
func (t Taxonomy) Types() []ExpressionType {
	var out []ExpressionType
	for _, tag := range t.types.Tags() {
		out = append(out, ExpressionType(tag))
	}
	if !slices.Contains(out, TypeIdiom) {
		out = append(out, TypeIdiom)
	}
	return out
}

// ExpertDomain names the reviewer specialty for a batch, suffixed with the
// region unless the region is general.
func (t Taxonomy) ExpertDomain(region Region, typ ExpressionType) string {
	expert, ok := t.experts[typ]
	if !ok {
		expert = defaultExpert
	}
	if region == RegionGeneral || region == "" {
		return expert
	}
	return expert + "_" + string(region)
}

// TypeWeight returns the priority weight of an expression type.
func (t Taxonomy) TypeWeight(typ ExpressionType) int {
	return t.weights[typ]
}

// RegionBonus is +10 for the major regions, +5 for any other named region.
func (t Taxonomy) RegionBonus(region Region) int {
	switch {
	case t.major[region]:
		return 10
	case region == RegionGeneral || region == "":
		return 0
	}
	return 5
}

// Criteria returns the validation checklist of an expression type.
func (t Taxonomy) Criteria(typ ExpressionType) []string {
	if c, ok := t.criteria[typ]; ok {
		return slices.Clone(c)
	}
	return slices.Clone(defaultCriteria)
}

func words(tag string, weight int, exprs ...string) matcher.Table {
	rules := make(matcher.Table, 0, len(exprs))
	for _, e := range exprs {
		rules = append(rules, matcher.Rule{Tag: tag, Matcher: matcher.Words(e), Weight: weight})
	}
	return rules
}

func literals(tag string, phrases ...string) matcher.Table {
	rules := make(matcher.Table, 0, len(phrases))
	for _, p := range phrases {
		rules = append(rules, matcher.Rule{Tag: tag, Matcher: matcher.Literal(p), Weight: 1})
	}
	return rules
}

// DefaultTaxonomy returns the built-in Haitian region and expression tables.
//
// Region precedence: the three major regions (ouest, nord, sud) first, then
// the remaining departments from north to south-east. A text naming places
// in two regions is assigned to the earlier one.
func DefaultTaxonomy() Taxonomy {
	var regions matcher.Table
	for _, group := range []matcher.Table{
		literals(string(RegionOuest), "pòtoprens", "kapital", "lavil", "petyonvil", "delma", "kenskòf"),
		literals(string(RegionNord), "kapayisyen", "okap", "milò", "dondon", "plèndino"),
		literals(string(RegionSud), "lekay", "sud", "akayè", "pòsalè", "chantal"),
		literals(string(RegionArtibonite), "gonayiv", "desalin", "verrèt", "petitgwav", "marebalè"),
		literals(string(RegionCentre), "inch", "mayisad", "tomaso", "boukankarè"),
		literals(string(RegionGrandAnse), "jeremi", "korbay", "dame mari", "moron", "pestel"),
		literals(string(RegionNippes), "miragwàn", "baradè", "fon verrèt", "petit trou"),
		literals(string(RegionNordEst), "fòlibète", "wanament", "karaktè", "mombin kwòch"),
		literals(string(RegionNordOuest), "pòdepè", "janrabel", "mòlsenmikèl", "bombadil"),
		literals(string(RegionSudEst), "jakmèl", "marigò", "kayè", "bèlans", "kòtdefe"),
	} {
		regions = append(regions, group...)
	}

	var types matcher.Table
	for _, group := range []matcher.Table{
		words(string(TypeIdiom), 1,
			`kou(?:\s.*)?\skout`, `si(?:\s.*)?\ssi`, `tan(?:\s.*)?\stan`, `kòm(?:\s.*)?\skòm`, `depi(?:\s.*)?\srive`),
		append(matcher.Table{{Tag: string(TypeProverb), Matcher: matcher.Regex(`^\p{L}.*\.$`), Weight: 1}},
			literals(string(TypeProverb), "prèvèb", "ditou", "gen yon mo ki di", "kòm yo di")...),
		literals(string(TypeMedicalCultural), "fèy", "tizann", "remèd", "medsen fèy", "doktè fèy", "manbo", "wanga"),
		literals(string(TypeReligious), "bondye", "jezu", "sèn", "lwa", "vèvè", "priyè", "kanzo"),
		literals(string(TypeSocial), "kominote", "vwazinaj", "konbit", "sosyete", "famn"),
		literals(string(TypeFamily), "fanmi", "manman", "papa", "tonton", "matant", "kouzen", "tifi", "tigason"),
		literals(string(TypeFood), "manje", "kuizin", "diri", "pwa", "banann", "kalalou", "griyò"),
		literals(string(TypeWeather), "lapli", "sèl", "van", "siklòn", "sezon", "frechè", "cho"),
		literals(string(TypeWork), "travay", "jòb", "kòmès", "kiltè", "peyizan", "machann"),
		literals(string(TypeCelebration), "fèt", "kanaval", "noèl", "pak", "muzik", "danse", "konpa"),
	} {
		types = append(types, group...)
	}

	return Taxonomy{
		regions: regions,
		types:   types,
		major:   map[Region]bool{RegionOuest: true, RegionNord: true, RegionSud: true},
		experts: map[ExpressionType]string{
			TypeMedicalCultural: "medical_anthropologist",
			TypeReligious:       "religious_studies",
			TypeProverb:         "cultural_linguist",
			TypeFood:            "culinary_anthropologist",
			TypeFamily:          "social_anthropologist",
			TypeCelebration:     "cultural_historian",
		},
		weights: map[ExpressionType]int{
			TypeMedicalCultural: 20,
			TypeReligious:       15,
			TypeProverb:         10,
			TypeFamily:          8,
			TypeSocial:          8,
			TypeFood:            5,
			TypeCelebration:     5,
			TypeWeather:         3,
			TypeWork:            3,
			TypeIdiom:           2,
		},
		criteria: map[ExpressionType][]string{
			TypeIdiom: {
				"Verify idiomatic meaning accuracy",
				"Check cultural appropriateness",
				"Confirm regional usage",
				"Validate register level",
			},
			TypeProverb: {
				"Verify traditional accuracy",
				"Check cultural significance",
				"Confirm widespread usage",
				"Validate moral/lesson content",
			},
			TypeMedicalCultural: {
				"Verify medical accuracy",
				"Check cultural sensitivity",
				"Confirm traditional usage",
				"Validate safety implications",
			},
			TypeReligious: {
				"Verify religious accuracy",
				"Check cultural sensitivity",
				"Confirm denominational appropriateness",
				"Validate spiritual context",
			},
			TypeFamily: {
				"Verify family relationship accuracy",
				"Check cultural appropriateness",
				"Confirm social context",
				"Validate generational usage",
			},
		},
	}
}
