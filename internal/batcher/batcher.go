// Package batcher groups draft cultural expressions into regional review
// batches routed to domain experts.
package batcher

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/chunker"
	"github.com/valpere/kalimax-triage/internal/normalize"
	"github.com/valpere/kalimax-triage/internal/store"
)

// DefaultBatchSize is the number of expressions per batch when the caller
// does not choose one.
const DefaultBatchSize = 20

// Batch is one review unit of same-region, same-type expressions.
type Batch struct {
	ID               string                      `json:"batch_id"`
	Region           Region                      `json:"region"`
	Type             ExpressionType              `json:"expression_type"`
	Entries          []internal.TranslationEntry `json:"-"`
	ExpertDomain     string                      `json:"expert_domain"`
	EstimatedMinutes int                         `json:"estimated_review_time"`
	PriorityScore    float64                     `json:"priority_score"`
	Criteria         []string                    `json:"validation_criteria"`
	CulturalNotes    []string                    `json:"cultural_notes"`
}

// Store is the part of the corpus store the batcher needs.
type Store interface {
	ListDrafts(ctx context.Context, table internal.Table, filter store.DraftFilter) ([]internal.TranslationEntry, error)
}

type Batcher struct {
	tax   Taxonomy
	store Store
	log   *slog.Logger
}

func New(tax Taxonomy, st Store, logger *slog.Logger) *Batcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{tax: tax, store: st, log: logger}
}

// Taxonomy returns the taxonomy the batcher classifies with.
func (b *Batcher) Taxonomy() Taxonomy {
	return b.tax
}

// Classify delegates to the taxonomy.
func (b *Batcher) Classify(creole, english, note string) (Region, ExpressionType) {
	return b.tax.Classify(creole, english, note)
}

// Options selects and sizes batches. Empty Region and Type match all.
type Options struct {
	Size   int
	Region Region
	Type   ExpressionType
}

type group struct {
	region  Region
	typ     ExpressionType
	entries []internal.TranslationEntry
}

// CreateBatches classifies every draft expression, groups entries by region
// and type in order of first appearance, and splits each group into batches
// of at most opts.Size entries. Entries are taken lowest confidence first.
// The result is sorted by priority score, highest first; equal scores keep
// group order.
func (b *Batcher) CreateBatches(ctx context.Context, opts Options) ([]Batch, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", internal.ErrInvalidArgument, opts.Size)
	}
	if opts.Region != "" && !slices.Contains(b.tax.Regions(), opts.Region) {
		return nil, fmt.Errorf("%w: unknown region %q", internal.ErrInvalidArgument, opts.Region)
	}
	if opts.Type != "" && !slices.Contains(b.tax.Types(), opts.Type) {
		return nil, fmt.Errorf("%w: unknown expression type %q", internal.ErrInvalidArgument, opts.Type)
	}

	entries, err := b.store.ListDrafts(ctx, internal.TableExpressions, store.DraftFilter{})
	if err != nil {
		return nil, fmt.Errorf("create batches: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Confidence != entries[j].Confidence {
			return entries[i].Confidence < entries[j].Confidence
		}
		return entries[i].ID < entries[j].ID
	})

	var groups []*group
	index := make(map[string]*group)
	for _, e := range entries {
		region, typ := b.tax.Classify(e.SourceText, e.Target(0), e.CulturalNote)
		if opts.Region != "" && region != opts.Region {
			continue
		}
		if opts.Type != "" && typ != opts.Type {
			continue
		}
		key := string(region) + "/" + string(typ)
		g, ok := index[key]
		if !ok {
			g = &group{region: region, typ: typ}
			index[key] = g
			groups = append(groups, g)
		}
		g.entries = append(g.entries, e)
	}

	var batches []Batch
	for _, g := range groups {
		for seq, chunk := range chunker.Chunk(g.entries, opts.Size) {
			batches = append(batches, b.newBatch(g.region, g.typ, seq+1, chunk))
		}
	}

	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].PriorityScore > batches[j].PriorityScore
	})

	b.log.Debug("batches created", "expressions", len(entries), "groups", len(groups), "batches", len(batches))
	return batches, nil
}

// BatchID formats the identifier of the seq-th batch of a region/type group.
func BatchID(region Region, typ ExpressionType, seq int) string {
	return fmt.Sprintf("CULT_%s_%s_%03d", strings.ToUpper(string(region)), strings.ToUpper(string(typ)), seq)
}

func (b *Batcher) newBatch(region Region, typ ExpressionType, seq int, entries []internal.TranslationEntry) Batch {
	return Batch{
		ID:               BatchID(region, typ, seq),
		Region:           region,
		Type:             typ,
		Entries:          slices.Clone(entries),
		ExpertDomain:     b.tax.ExpertDomain(region, typ),
		EstimatedMinutes: EstimateReviewTime(entries),
		PriorityScore:    b.PriorityScore(region, typ, entries),
		Criteria:         b.tax.Criteria(typ),
		CulturalNotes:    CulturalNotes(entries),
	}
}

// EstimateReviewTime sums per-entry review minutes: 8 base, +3 for more than
// ten Creole words, +5 below 0.4 confidence or +2 below 0.6, and +2 when a
// cultural note is present.
func EstimateReviewTime(entries []internal.TranslationEntry) int {
	total := 0
	for _, e := range entries {
		minutes := 8
		if normalize.WordCount(e.SourceText) > 10 {
			minutes += 3
		}
		switch {
		case e.Confidence < 0.4:
			minutes += 5
		case e.Confidence < 0.6:
			minutes += 2
		}
		if strings.TrimSpace(e.CulturalNote) != "" {
			minutes += 2
		}
		total += minutes
	}
	return total
}

// PriorityScore is 50 plus the type weight, the region bonus, twenty times
// the shortfall of the average confidence from 1, and a size bonus of +5
// for 15 entries or more or +3 for 10 or more, rounded to two decimals.
func (b *Batcher) PriorityScore(region Region, typ ExpressionType, entries []internal.TranslationEntry) float64 {
	score := decimal.NewFromInt(50).
		Add(decimal.NewFromInt(int64(b.tax.TypeWeight(typ)))).
		Add(decimal.NewFromInt(int64(b.tax.RegionBonus(region))))

	if n := len(entries); n > 0 {
		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(decimal.NewFromFloat(e.Confidence))
		}
		avg := sum.Div(decimal.NewFromInt(int64(n)))
		score = score.Add(decimal.NewFromInt(1).Sub(avg).Mul(decimal.NewFromInt(20)))
	}

	switch n := len(entries); {
	case n >= 15:
		score = score.Add(decimal.NewFromInt(5))
	case n >= 10:
		score = score.Add(decimal.NewFromInt(3))
	}

	f, _ := score.Round(2).Float64()
	return f
}

// CulturalNotes returns the distinct non-empty notes in order of first
// appearance.
func CulturalNotes(entries []internal.TranslationEntry) []string {
	notes := []string{}
	seen := make(map[string]bool)
	for _, e := range entries {
		note := strings.TrimSpace(e.CulturalNote)
		if note == "" || seen[note] {
			continue
		}
		seen[note] = true
		notes = append(notes, note)
	}
	return notes
}
