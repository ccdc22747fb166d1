// Package risk flags safety-relevant medical content in draft translation
// entries and writes the flags, review marker and derived priority back to
// the corpus store.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/chunker"
	"github.com/valpere/kalimax-triage/internal/store"
)

// DefaultWriteBatch is the number of rows written per transaction when the
// options leave it unset.
const DefaultWriteBatch = 500

// Store is the part of the corpus store the classifier needs.
type Store interface {
	ListDrafts(ctx context.Context, table internal.Table, filter store.DraftFilter) ([]internal.TranslationEntry, error)
	SaveClassifications(ctx context.Context, table internal.Table, items []store.Classification) error
	ListFlagged(ctx context.Context, table internal.Table) ([]store.FlaggedRow, error)
}

type Options struct {
	WriteBatch int // rows per write transaction
	Logger     *slog.Logger
}

type Classifier struct {
	rules      RuleSet
	store      Store
	writeBatch int
	log        *slog.Logger
}

func New(rules RuleSet, st Store, opts Options) *Classifier {
	if opts.WriteBatch <= 0 {
		opts.WriteBatch = DefaultWriteBatch
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Classifier{
		rules:      rules,
		store:      st,
		writeBatch: opts.WriteBatch,
		log:        opts.Logger,
	}
}

// Rules returns the rule set the classifier was built with.
func (c *Classifier) Rules() RuleSet {
	return c.rules
}

// Analyze returns the flags raised by a single text.
func (c *Classifier) Analyze(text string) []internal.RiskFlag {
	return c.rules.Analyze(text)
}

// AnalyzeEntry scans the source text and every target text of e. Flags are
// deduplicated by term; the first occurrence wins.
func (c *Classifier) AnalyzeEntry(e internal.TranslationEntry) []internal.RiskFlag {
	seen := make(map[string]bool)
	var flags []internal.RiskFlag
	for _, text := range e.Texts() {
		for _, f := range c.rules.Analyze(text) {
			if seen[f.Term] {
				continue
			}
			seen[f.Term] = true
			flags = append(flags, f)
		}
	}
	return flags
}

// Classify derives the stored fields of e from its flags.
func (c *Classifier) Classify(e internal.TranslationEntry) store.Classification {
	flags := c.AnalyzeEntry(e)
	out := store.Classification{ID: e.ID, Flags: flags}
	if len(flags) == 0 {
		return out
	}

	p := PriorityFor(internal.WorstRiskLevel(flags))
	out.Priority = &p
	for _, f := range flags {
		if f.RiskLevel.AtLeast(internal.RiskHigh) {
			out.NeedsReview = true
			break
		}
	}
	return out
}

// PriorityFor maps the worst flag level of an entry to its stored priority.
func PriorityFor(worst internal.RiskLevel) internal.PriorityLevel {
	switch worst {
	case internal.RiskCritical:
		return internal.PriorityCritical
	case internal.RiskHigh:
		return internal.PriorityHigh
	}
	return internal.PriorityMedium
}

// FlagEntries classifies every draft row of table and replaces the stored
// flags, review marker and priority. Rows without flags are cleared. Writes
// are committed in batches; on a write error the batches already committed
// stay classified and the partial summary is returned with the error.
func (c *Classifier) FlagEntries(ctx context.Context, table internal.Table) (internal.SweepSummary, error) {
	if !table.Valid() {
		return internal.SweepSummary{}, fmt.Errorf("%w: unknown table %q", internal.ErrInvalidArgument, table)
	}
	sum := internal.SweepSummary{RunID: uuid.NewString()}
	err := c.sweep(ctx, table, &sum)
	return sum, err
}

// FlagAll runs FlagEntries over every table in order and returns a single
// summary.
func (c *Classifier) FlagAll(ctx context.Context) (internal.SweepSummary, error) {
	sum := internal.SweepSummary{RunID: uuid.NewString()}
	for _, table := range internal.Tables {
		if err := c.sweep(ctx, table, &sum); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (c *Classifier) sweep(ctx context.Context, table internal.Table, sum *internal.SweepSummary) error {
	start := time.Now()
	defer func() { sum.Duration += time.Since(start) }()
	sum.Tables = append(sum.Tables, table)

	entries, err := c.store.ListDrafts(ctx, table, store.DraftFilter{})
	if err != nil {
		return fmt.Errorf("sweep %s: %w", table, err)
	}

	items := make([]store.Classification, 0, len(entries))
	for _, e := range entries {
		sum.Checked++
		if strings.TrimSpace(e.SourceText) == "" {
			err := fmt.Errorf("%w: %s/%d has no source text", internal.ErrMalformedEntry, table, e.ID)
			sum.Skipped++
			sum.Warnings = append(sum.Warnings, err.Error())
			c.log.Warn("skipping entry", "table", table, "id", e.ID, "error", err)
			continue
		}

		cl := c.Classify(e)
		items = append(items, cl)
		if len(cl.Flags) == 0 {
			continue
		}
		sum.Flagged++
		switch internal.WorstRiskLevel(cl.Flags) {
		case internal.RiskCritical:
			sum.Critical++
		case internal.RiskHigh:
			sum.High++
		}
	}

	for _, batch := range chunker.Chunk(items, c.writeBatch) {
		if err := c.store.SaveClassifications(ctx, table, batch); err != nil {
			return fmt.Errorf("sweep %s: %w", table, err)
		}
	}

	c.log.Info("risk sweep finished",
		"run_id", sum.RunID,
		"table", table,
		"checked", len(entries),
		"written", len(items),
		"duration", time.Since(start))
	return nil
}

// FlaggedEntry is a row with stored risk flags.
type FlaggedEntry struct {
	Table       internal.Table         `json:"table"`
	ID          int64                  `json:"id"`
	SourceText  string                 `json:"source_text"`
	Status      string                 `json:"curation_status"`
	Flags       []internal.RiskFlag    `json:"risk_flags"`
	Priority    internal.PriorityLevel `json:"priority_level"`
	NeedsReview bool                   `json:"requires_immediate_review"`
}

// FlaggedEntries returns rows with stored flags across every table, sorted
// by priority level with ties kept in table then id order. When level is
// set only rows carrying a flag of that level are returned. limit ≤ 0 means
// no limit. Rows whose stored flags cannot be parsed are skipped and
// reported as warnings.
func (c *Classifier) FlaggedEntries(ctx context.Context, level internal.RiskLevel, limit int) ([]FlaggedEntry, []string, error) {
	if level != "" && !level.Valid() {
		return nil, nil, fmt.Errorf("%w: unknown risk level %q", internal.ErrInvalidArgument, level)
	}

	var (
		out      []FlaggedEntry
		warnings []string
	)
	for _, table := range internal.Tables {
		rows, err := c.store.ListFlagged(ctx, table)
		if err != nil {
			return nil, warnings, fmt.Errorf("flagged entries: %w", err)
		}
		for _, r := range rows {
			flags, err := store.DecodeFlags(r.RawFlags)
			if err != nil {
				if !errors.Is(err, internal.ErrMalformedEntry) {
					return nil, warnings, err
				}
				warnings = append(warnings, fmt.Sprintf("%s/%d: %v", table, r.ID, err))
				c.log.Warn("skipping malformed risk flags", "table", table, "id", r.ID, "error", err)
				continue
			}
			if level != "" && !hasLevel(flags, level) {
				continue
			}
			out = append(out, FlaggedEntry{
				Table:       table,
				ID:          r.ID,
				SourceText:  r.SourceText,
				Status:      r.Status,
				Flags:       flags,
				Priority:    r.Priority,
				NeedsReview: r.NeedsReview,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, warnings, nil
}

func hasLevel(flags []internal.RiskFlag, level internal.RiskLevel) bool {
	for _, f := range flags {
		if f.RiskLevel == level {
			return true
		}
	}
	return false
}
