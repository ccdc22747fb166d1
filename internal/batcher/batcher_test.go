package batcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/store"
)

func TestClassify(t *testing.T) {
	tax := DefaultTaxonomy()

	tests := []struct {
		name    string
		creole  string
		english string
		note    string
		region  Region
		typ     ExpressionType
	}{
		{"religious general", "Bondye bon", "God is good", "", RegionGeneral, TypeReligious},
		{"food outweighs family", "Nan Okap, manman m fè diri ak pwa", "", "", RegionNord, TypeFood},
		{"weather south-east", "Lapli tonbe nan Jakmèl", "", "", RegionSudEst, TypeWeather},
		{"region precedence", "Pòtoprens ak Okap", "", "", RegionOuest, TypeIdiom},
		{"accented place name", "Moun Milò yo", "", "", RegionNord, TypeIdiom},
		{"tie goes to earlier type", "manman ak diri", "", "", RegionGeneral, TypeFamily},
		{"proverb shape", "Dèyè mòn gen mòn.", "", "", RegionGeneral, TypeProverb},
		{"idiom pattern", "Kou pou kout", "", "", RegionGeneral, TypeIdiom},
		{"idiom repeat before a longer word", "si ou manje si ou sispann", "", "", RegionGeneral, TypeIdiom},
		{"longer word is not a repeat", "Tan an bon, m ap tande lapli", "", "", RegionGeneral, TypeWeather},
		{"note contributes", "Li bwè yon bagay", "He drank something", "tizann fèy zoranj", RegionGeneral, TypeMedicalCultural},
		{"nothing matches", "", "", "", RegionGeneral, TypeIdiom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, typ := tax.Classify(tt.creole, tt.english, tt.note)
			if region != tt.region {
				t.Errorf("expected region %q, got %q", tt.region, region)
			}
			if typ != tt.typ {
				t.Errorf("expected type %q, got %q", tt.typ, typ)
			}
		})
	}
}

func TestClassify_Stable(t *testing.T) {
	tax := DefaultTaxonomy()
	r1, t1 := tax.Classify("Fanmi se fanmi, nan Jeremi", "Family is family", "konbit")
	for i := 0; i < 10; i++ {
		r2, t2 := tax.Classify("Fanmi se fanmi, nan Jeremi", "Family is family", "konbit")
		if r1 != r2 || t1 != t2 {
			t.Fatalf("classification changed: %s/%s vs %s/%s", r1, t1, r2, t2)
		}
	}
}

func TestTaxonomyLookups(t *testing.T) {
	tax := DefaultTaxonomy()

	if got := tax.ExpertDomain(RegionNord, TypeMedicalCultural); got != "medical_anthropologist_nord" {
		t.Errorf("unexpected expert %q", got)
	}
	if got := tax.ExpertDomain(RegionGeneral, TypeWeather); got != "cultural_linguist" {
		t.Errorf("unexpected expert %q", got)
	}
	if tax.RegionBonus(RegionSud) != 10 || tax.RegionBonus(RegionCentre) != 5 || tax.RegionBonus(RegionGeneral) != 0 {
		t.Error("unexpected region bonus")
	}
	if len(tax.Criteria(TypeWork)) != 4 || tax.Criteria(TypeWork)[0] != "Verify translation accuracy" {
		t.Errorf("unexpected default criteria %v", tax.Criteria(TypeWork))
	}
	if regions := tax.Regions(); len(regions) != 11 || regions[0] != RegionOuest || regions[10] != RegionGeneral {
		t.Errorf("unexpected regions %v", regions)
	}
	if types := tax.Types(); len(types) != 10 || types[0] != TypeIdiom {
		t.Errorf("unexpected types %v", types)
	}
}

func TestEstimateReviewTime(t *testing.T) {
	entries := []internal.TranslationEntry{
		{SourceText: strings.Repeat("mo ", 11), Confidence: 0.3, CulturalNote: "nòt"},
		{SourceText: "de mo", Confidence: 0.5},
		{SourceText: "yon", Confidence: 0.9},
	}
	if got := EstimateReviewTime(entries); got != 36 {
		t.Errorf("expected 36 minutes, got %d", got)
	}
}

func TestPriorityScore(t *testing.T) {
	b := New(DefaultTaxonomy(), nil, nil)

	tests := []struct {
		region Region
		typ    ExpressionType
		conf   []float64
		want   float64
	}{
		{RegionSud, TypeMedicalCultural, []float64{0.3, 0.4}, 93},
		{RegionGeneral, TypeIdiom, []float64{0.1, 0.2, 0.2}, 68.67},
		{RegionCentre, TypeWork, []float64{1, 1}, 58},
	}
	for _, tt := range tests {
		var entries []internal.TranslationEntry
		for _, c := range tt.conf {
			entries = append(entries, internal.TranslationEntry{Confidence: c})
		}
		if got := b.PriorityScore(tt.region, tt.typ, entries); got != tt.want {
			t.Errorf("%s/%s: expected %v, got %v", tt.region, tt.typ, tt.want, got)
		}
	}

	var ten []internal.TranslationEntry
	for i := 0; i < 15; i++ {
		ten = append(ten, internal.TranslationEntry{Confidence: 0.5})
	}
	if got := b.PriorityScore(RegionGeneral, TypeIdiom, ten[:10]); got != 65 {
		t.Errorf("expected 65 with size bonus 3, got %v", got)
	}
	if got := b.PriorityScore(RegionGeneral, TypeIdiom, ten); got != 67 {
		t.Errorf("expected 67 with size bonus 5, got %v", got)
	}
}

func TestCulturalNotes(t *testing.T) {
	entries := []internal.TranslationEntry{
		{CulturalNote: "a"}, {CulturalNote: ""}, {CulturalNote: "b"}, {CulturalNote: " a "},
	}
	if got := CulturalNotes(entries); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("unexpected notes %v", got)
	}
	if got := CulturalNotes(nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil notes, got %#v", got)
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func addExpression(t *testing.T, st *store.Store, creole string, confidence float64, note string) int64 {
	t.Helper()
	id, err := st.AddEntry(context.Background(), internal.TranslationEntry{
		Table:        internal.TableExpressions,
		SourceText:   creole,
		TargetTexts:  []string{"english", "kreyòl lokal"},
		Register:     "informal",
		Region:       "stored-region",
		CulturalNote: note,
		Confidence:   confidence,
	})
	if err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	return id
}

func TestCreateBatches(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	for i := 0; i < 23; i++ {
		addExpression(t, st, fmt.Sprintf("Bondye bon %d", i), 0.5, "")
	}
	for i := 0; i < 3; i++ {
		addExpression(t, st, "Manman m nan Okap", 0.5, "")
	}

	b := New(DefaultTaxonomy(), st, nil)
	batches, err := b.CreateBatches(ctx, Options{Size: 10})
	if err != nil {
		t.Fatalf("CreateBatches: %v", err)
	}

	var ids []string
	seen := make(map[int64]bool)
	for i, batch := range batches {
		ids = append(ids, batch.ID)
		if len(batch.Entries) == 0 || len(batch.Entries) > 10 {
			t.Errorf("%s: %d entries", batch.ID, len(batch.Entries))
		}
		if i > 0 && batches[i-1].PriorityScore < batch.PriorityScore {
			t.Errorf("batches not sorted by score at %d", i)
		}
		for _, e := range batch.Entries {
			if seen[e.ID] {
				t.Errorf("entry %d in two batches", e.ID)
			}
			seen[e.ID] = true
		}
	}
	if len(seen) != 26 {
		t.Errorf("expected 26 batched entries, got %d", len(seen))
	}

	want := []string{"CULT_GENERAL_RELIGIOUS_001", "CULT_GENERAL_RELIGIOUS_002", "CULT_NORD_FAMILY_001", "CULT_GENERAL_RELIGIOUS_003"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}

	nord := batches[2]
	if nord.ExpertDomain != "social_anthropologist_nord" || nord.PriorityScore != 78 {
		t.Errorf("unexpected nord batch metadata: %+v", nord)
	}
}

func TestCreateBatches_ConfidenceOrder(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	high := addExpression(t, st, "Bondye konnen", 0.9, "")
	low := addExpression(t, st, "Bondye bon", 0.2, "")
	mid := addExpression(t, st, "Bondye la", 0.5, "")

	batches, err := New(DefaultTaxonomy(), st, nil).CreateBatches(ctx, Options{Size: 20})
	if err != nil {
		t.Fatalf("CreateBatches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(batches))
	}
	var got []int64
	for _, e := range batches[0].Entries {
		got = append(got, e.ID)
	}
	if !reflect.DeepEqual(got, []int64{low, mid, high}) {
		t.Errorf("expected lowest confidence first, got %v", got)
	}
}

func TestCreateBatches_Filters(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	addExpression(t, st, "Bondye bon", 0.5, "")
	addExpression(t, st, "Manman m nan Okap", 0.5, "")
	addExpression(t, st, "Lapli ap tonbe", 0.5, "")

	b := New(DefaultTaxonomy(), st, nil)

	batches, err := b.CreateBatches(ctx, Options{Size: 5, Region: RegionNord})
	if err != nil {
		t.Fatalf("CreateBatches: %v", err)
	}
	if len(batches) != 1 || batches[0].Region != RegionNord {
		t.Errorf("unexpected region batches %+v", batches)
	}

	batches, _ = b.CreateBatches(ctx, Options{Size: 5, Type: TypeWeather})
	if len(batches) != 1 || batches[0].Type != TypeWeather {
		t.Errorf("unexpected type batches %+v", batches)
	}

	tests := []Options{
		{Size: 0},
		{Size: -3},
		{Size: 5, Region: "mars"},
		{Size: 5, Type: "limerick"},
	}
	for _, opts := range tests {
		if _, err := b.CreateBatches(ctx, opts); !errors.Is(err, internal.ErrInvalidArgument) {
			t.Errorf("%+v: expected ErrInvalidArgument, got %v", opts, err)
		}
	}
}

func TestBatchID(t *testing.T) {
	if got := BatchID(RegionGrandAnse, TypeMedicalCultural, 7); got != "CULT_GRAND_ANSE_MEDICAL_CULTURAL_007" {
		t.Errorf("unexpected id %q", got)
	}
}
