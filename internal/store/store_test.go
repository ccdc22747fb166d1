package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/valpere/kalimax-triage/internal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustAdd(t *testing.T, s *Store, e internal.TranslationEntry) int64 {
	t.Helper()
	id, err := s.AddEntry(context.Background(), e)
	if err != nil {
		t.Fatalf("AddEntry failed: %v", err)
	}
	return id
}

func TestStore_New(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if got := s.db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("expected a single connection, got limit %d", got)
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if !errors.Is(err, internal.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestStore_New_ExistingSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	mustAdd(t, s, internal.TranslationEntry{Table: internal.TableCorpus, SourceText: "Drink water", Confidence: 0.9})
	_ = s.Close()

	s, err = New(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()
	drafts, err := s.ListDrafts(context.Background(), internal.TableCorpus, DraftFilter{})
	if err != nil || len(drafts) != 1 {
		t.Errorf("expected the existing row to survive reopening, got %d (%v)", len(drafts), err)
	}
}

func TestDSN(t *testing.T) {
	if got := dsn("a.db"); got != "a.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)" {
		t.Errorf("unexpected dsn %q", got)
	}
	if got := dsn("file:a.db?mode=rwc"); got[:22] != "file:a.db?mode=rwc&_pr" {
		t.Errorf("unexpected dsn %q", got)
	}
}

func TestStore_ListDrafts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := mustAdd(t, s, internal.TranslationEntry{
		Table: internal.TableCorpus, SourceText: "Take insulin", TargetTexts: []string{"Pran ensilin"},
		Domain: "medical", Confidence: 0.4,
	})
	mustAdd(t, s, internal.TranslationEntry{
		Table: internal.TableCorpus, SourceText: "Done", Status: internal.StatusApproved, Confidence: 0.9,
	})
	if _, err := s.db.Exec(`INSERT INTO corpus (src_text) VALUES ('No metadata')`); err != nil {
		t.Fatal(err)
	}

	drafts, err := s.ListDrafts(ctx, internal.TableCorpus, DraftFilter{})
	if err != nil {
		t.Fatalf("ListDrafts failed: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	if drafts[0].ID != first || drafts[0].Target(0) != "Pran ensilin" || drafts[0].Domain != "medical" {
		t.Errorf("unexpected first draft %+v", drafts[0])
	}
	if drafts[1].Domain != "general" || drafts[1].Confidence != 0.5 || drafts[1].Status != internal.StatusDraft {
		t.Errorf("NULL domain and confidence should read as general and 0.5: %+v", drafts[1])
	}

	medical, err := s.ListDrafts(ctx, internal.TableCorpus, DraftFilter{Domain: "medical"})
	if err != nil || len(medical) != 1 {
		t.Errorf("expected 1 medical draft, got %d (%v)", len(medical), err)
	}
	general, err := s.ListDrafts(ctx, internal.TableCorpus, DraftFilter{Domain: "general"})
	if err != nil || len(general) != 1 || general[0].SourceText != "No metadata" {
		t.Errorf("NULL domain should match the general filter, got %+v (%v)", general, err)
	}

	if _, err := s.ListDrafts(ctx, "notes", DraftFilter{}); !errors.Is(err, internal.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown table, got %v", err)
	}
}

func TestStore_ListDrafts_Expressions(t *testing.T) {
	s := newTestStore(t)
	mustAdd(t, s, internal.TranslationEntry{
		Table:        internal.TableExpressions,
		SourceText:   "Dèyè mòn gen mòn",
		TargetTexts:  []string{"Beyond mountains there are mountains", "Dèyè mòn, gen mòn ankò"},
		Register:     "proverb",
		Region:       "ouest",
		CulturalNote: "Patience",
		Confidence:   0.7,
	})

	drafts, err := s.ListDrafts(context.Background(), internal.TableExpressions, DraftFilter{})
	if err != nil || len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d (%v)", len(drafts), err)
	}
	e := drafts[0]
	if !reflect.DeepEqual(e.TargetTexts, []string{"Beyond mountains there are mountains", "Dèyè mòn, gen mòn ankò"}) {
		t.Errorf("unexpected targets %v", e.TargetTexts)
	}
	if e.Register != "proverb" || e.Domain != "proverb" || e.Region != "ouest" || e.CulturalNote != "Patience" {
		t.Errorf("unexpected expression fields %+v", e)
	}
}

func TestStore_SaveClassifications(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	draft := mustAdd(t, s, internal.TranslationEntry{Table: internal.TableGlossary, SourceText: "ensilin", Confidence: 0.6})
	approved := mustAdd(t, s, internal.TranslationEntry{
		Table: internal.TableGlossary, SourceText: "tansyon", Status: internal.StatusApproved, Confidence: 0.6,
	})

	flags := []internal.RiskFlag{{
		Term: "insulin", RiskLevel: internal.RiskHigh, Category: "medication", Reason: "Dosing errors",
		MatchedPattern: "ensilin", Variants: []string{"ensilin"}, RequiresImmediateReview: true,
	}}
	high := internal.PriorityHigh
	err := s.SaveClassifications(ctx, internal.TableGlossary, []Classification{
		{ID: draft, Flags: flags, NeedsReview: true, Priority: &high},
		{ID: approved, Flags: flags, NeedsReview: true, Priority: &high},
	})
	if err != nil {
		t.Fatalf("SaveClassifications failed: %v", err)
	}

	e, err := s.Entry(ctx, internal.TableGlossary, draft)
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if !reflect.DeepEqual(e.RiskFlags, flags) || !e.NeedsReview || e.Priority != internal.PriorityHigh {
		t.Errorf("unexpected classified entry %+v", e)
	}

	other, err := s.Entry(ctx, internal.TableGlossary, approved)
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if other.RiskFlags != nil || other.NeedsReview {
		t.Errorf("non-draft rows must not be classified: %+v", other)
	}

	if err := s.SaveClassifications(ctx, internal.TableGlossary, []Classification{{ID: draft}}); err != nil {
		t.Fatalf("SaveClassifications failed: %v", err)
	}
	e, err = s.Entry(ctx, internal.TableGlossary, draft)
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if e.RiskFlags != nil || e.NeedsReview || e.Priority != 0 {
		t.Errorf("empty classification should clear stored values: %+v", e)
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id := mustAdd(t, s, internal.TranslationEntry{Table: internal.TableCorpus, SourceText: "Rest", UpdatedAt: "2020-01-01 00:00:00"})

	at := time.Date(2025, 5, 2, 13, 4, 5, 0, time.FixedZone("EST", -5*3600))
	err := s.UpdateStatus(ctx, internal.TableCorpus, id, StatusUpdate{Status: internal.StatusNeedsRevision, Notes: "tone", At: at})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	e, err := s.Entry(ctx, internal.TableCorpus, id)
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if e.Status != internal.StatusNeedsRevision || e.CuratorNotes != "tone" || e.UpdatedAt != "2025-05-02 18:04:05" {
		t.Errorf("unexpected entry after update %+v", e)
	}

	tests := []struct {
		name  string
		table internal.Table
		id    int64
		u     StatusUpdate
		want  error
	}{
		{"unknown id", internal.TableCorpus, id + 100, StatusUpdate{Status: internal.StatusApproved}, internal.ErrNotFound},
		{"unknown status", internal.TableCorpus, id, StatusUpdate{Status: "done"}, internal.ErrInvalidArgument},
		{"unknown table", "notes", id, StatusUpdate{Status: internal.StatusApproved}, internal.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.UpdateStatus(ctx, tt.table, tt.id, tt.u); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := s.Entry(ctx, internal.TableCorpus, id+100); !errors.Is(err, internal.ErrNotFound) {
		t.Errorf("expected ErrNotFound from Entry, got %v", err)
	}
}

func TestStore_ListFlagged(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := mustAdd(t, s, internal.TranslationEntry{Table: internal.TableCorpus, SourceText: "a"})
	b := mustAdd(t, s, internal.TranslationEntry{Table: internal.TableCorpus, SourceText: "b"})
	mustAdd(t, s, internal.TranslationEntry{Table: internal.TableCorpus, SourceText: "clean"})
	c := mustAdd(t, s, internal.TranslationEntry{Table: internal.TableCorpus, SourceText: "c"})

	critical := internal.PriorityCritical
	err := s.SaveClassifications(ctx, internal.TableCorpus, []Classification{
		{ID: a, Flags: []internal.RiskFlag{{Term: "surgery", RiskLevel: internal.RiskModerate}}},
		{ID: b, Flags: []internal.RiskFlag{{Term: "stroke", RiskLevel: internal.RiskCritical}}, NeedsReview: true, Priority: &critical},
	})
	if err != nil {
		t.Fatalf("SaveClassifications failed: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE corpus SET medical_risk_flags = '{broken' WHERE id = ?`, c); err != nil {
		t.Fatal(err)
	}

	rows, err := s.ListFlagged(ctx, internal.TableCorpus)
	if err != nil {
		t.Fatalf("ListFlagged failed: %v", err)
	}
	var ids []int64
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	if !reflect.DeepEqual(ids, []int64{b, a, c}) {
		t.Errorf("expected %v, got %v", []int64{b, a, c}, ids)
	}
	if rows[0].Priority != internal.PriorityCritical || !rows[0].NeedsReview || rows[1].Priority != internal.PriorityMedium {
		t.Errorf("unexpected rows %+v", rows)
	}
	if rows[2].RawFlags != "{broken" {
		t.Errorf("raw flags should be returned undecoded, got %q", rows[2].RawFlags)
	}
}

func TestDecodeFlags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"valid", `[{"term":"stroke","risk_level":"critical","haitian_variants":["atak serebral"]}]`, true},
		{"empty list", `[]`, true},
		{"invalid json", `{broken`, false},
		{"unknown level", `[{"term":"stroke","risk_level":"severe"}]`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFlags(tt.raw)
			if tt.ok && err != nil {
				t.Errorf("unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, internal.ErrMalformedEntry) {
				t.Errorf("expected ErrMalformedEntry, got %v", err)
			}
		})
	}

	flags, _ := DecodeFlags(`[{"term":"stroke","risk_level":"critical","haitian_variants":["atak serebral"]}]`)
	if len(flags) != 1 || flags[0].Variants[0] != "atak serebral" {
		t.Errorf("variants should decode from haitian_variants: %+v", flags)
	}
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := "2020-01-01 00:00:00"
	mustAdd(t, s, internal.TranslationEntry{Table: internal.TableCorpus, SourceText: "a", UpdatedAt: old})
	id := mustAdd(t, s, internal.TranslationEntry{Table: internal.TableCorpus, SourceText: "b", UpdatedAt: old})
	mustAdd(t, s, internal.TranslationEntry{Table: internal.TableGlossary, SourceText: "c", Status: internal.StatusRejected, UpdatedAt: old})
	mustAdd(t, s, internal.TranslationEntry{Table: internal.TableExpressions, SourceText: "d", Region: "nord", UpdatedAt: old})
	mustAdd(t, s, internal.TranslationEntry{Table: internal.TableExpressions, SourceText: "e", Region: "nord", UpdatedAt: old})
	mustAdd(t, s, internal.TranslationEntry{Table: internal.TableExpressions, SourceText: "f", UpdatedAt: old})

	high := internal.PriorityHigh
	if err := s.SaveClassifications(ctx, internal.TableCorpus, []Classification{
		{ID: id, Flags: []internal.RiskFlag{{Term: "insulin", RiskLevel: internal.RiskHigh}}, Priority: &high},
	}); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	if err := s.UpdateStatus(ctx, internal.TableCorpus, id, StatusUpdate{Status: internal.StatusReviewed, At: at}); err != nil {
		t.Fatal(err)
	}

	status, err := s.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("StatusCounts failed: %v", err)
	}
	want := map[internal.Table]map[string]int{
		internal.TableCorpus:      {"draft": 1, "reviewed": 1},
		internal.TableGlossary:    {"rejected": 1},
		internal.TableExpressions: {"draft": 3},
	}
	if !reflect.DeepEqual(status, want) {
		t.Errorf("expected %v, got %v", want, status)
	}

	priorities, err := s.PriorityCounts(ctx)
	if err != nil || !reflect.DeepEqual(priorities, map[internal.PriorityLevel]int{internal.PriorityHigh: 1}) {
		t.Errorf("unexpected priority counts %v (%v)", priorities, err)
	}

	regions, err := s.RegionCounts(ctx)
	if err != nil || !reflect.DeepEqual(regions, map[string]int{"nord": 2}) {
		t.Errorf("unexpected region counts %v (%v)", regions, err)
	}

	activity, err := s.RecentActivity(ctx, at.AddDate(0, 0, -7))
	if err != nil || !reflect.DeepEqual(activity, map[string]int{"2025-03-14": 1}) {
		t.Errorf("unexpected activity %v (%v)", activity, err)
	}
}

func TestStore_HighRiskTerms(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	terms := []HighRiskTerm{
		{CreoleTerm: "kè a rete", EnglishTerm: "cardiac arrest", RiskLevel: internal.RiskCritical, Category: "cardiac"},
		{CreoleTerm: "tansyon", RiskLevel: internal.RiskHigh},
		{CreoleTerm: "sèdòz", EnglishTerm: "overdose", RiskLevel: internal.RiskCritical},
	}
	for _, term := range terms {
		if err := s.AddHighRiskTerm(ctx, term); err != nil {
			t.Fatalf("AddHighRiskTerm failed: %v", err)
		}
	}
	if err := s.AddHighRiskTerm(ctx, HighRiskTerm{CreoleTerm: "x", RiskLevel: "severe"}); !errors.Is(err, internal.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	got, err := s.HighRiskTerms(ctx, internal.RiskCritical)
	if err != nil {
		t.Fatalf("HighRiskTerms failed: %v", err)
	}
	if !reflect.DeepEqual(got, []HighRiskTerm{terms[0], terms[2]}) {
		t.Errorf("unexpected terms %+v", got)
	}
}
