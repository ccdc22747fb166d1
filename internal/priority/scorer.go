// Package priority decides the review order of draft entries from their
// risk, confidence and domain.
package priority

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/normalize"
	"github.com/valpere/kalimax-triage/internal/store"
)

// Tags attached to a task explaining its priority.
const (
	TagHighRiskMedical    = "high_risk_medical"
	TagVeryLowConfidence  = "very_low_confidence"
	TagMedicalDomain      = "medical_domain"
	TagLowConfidence      = "low_confidence"
	TagCulturalExpression = "cultural_expression"
	TagModerateConfidence = "moderate_confidence"
)

// Confidence thresholds of the priority rules.
const (
	veryLowConfidence  = 0.30
	lowConfidence      = 0.50
	moderateConfidence = 0.70
)

const maxCurationMinutes = 30

// DefaultTables are the tables feeding the generic review queue. Expressions
// are normally reviewed through regional batches instead.
var DefaultTables = []internal.Table{internal.TableCorpus, internal.TableGlossary}

// Store is the part of the corpus store the scorer needs.
type Store interface {
	ListDrafts(ctx context.Context, table internal.Table, filter store.DraftFilter) ([]internal.TranslationEntry, error)
	UpdateStatus(ctx context.Context, table internal.Table, id int64, u store.StatusUpdate) error
}

type Options struct {
	Tables []internal.Table // overrides DefaultTables
	Logger *slog.Logger
	Now    func() time.Time // curation timestamps
}

type Scorer struct {
	terms  TermSet
	store  Store
	tables []internal.Table
	log    *slog.Logger
	now    func() time.Time
}

func New(terms TermSet, st Store, opts Options) *Scorer {
	if len(opts.Tables) == 0 {
		opts.Tables = DefaultTables
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scorer{
		terms:  terms,
		store:  st,
		tables: append([]internal.Table(nil), opts.Tables...),
		log:    opts.Logger,
		now:    opts.Now,
	}
}

// Tables returns the tables feeding the queue.
func (s *Scorer) Tables() []internal.Table {
	return append([]internal.Table(nil), s.tables...)
}

// CalculatePriority applies the priority rules in fixed precedence: critical
// term, very low confidence, medical domain or low confidence, cultural
// content or moderate confidence, and Low otherwise. The first rule that
// applies decides the level.
func (s *Scorer) CalculatePriority(confidence float64, domain, text string, table internal.Table) (internal.PriorityLevel, []string) {
	domain = strings.ToLower(strings.TrimSpace(domain))

	if s.terms.Contains(text) {
		return internal.PriorityCritical, []string{TagHighRiskMedical}
	}
	if confidence < veryLowConfidence {
		return internal.PriorityCritical, []string{TagVeryLowConfidence}
	}

	tags := []string{}
	if domain == "medical" || confidence < lowConfidence {
		if domain == "medical" {
			tags = append(tags, TagMedicalDomain)
		}
		if confidence < lowConfidence {
			tags = append(tags, TagLowConfidence)
		}
		return internal.PriorityHigh, tags
	}

	if table == internal.TableExpressions || domain == "cultural" || confidence < moderateConfidence {
		if table == internal.TableExpressions || domain == "cultural" {
			tags = append(tags, TagCulturalExpression)
		}
		if confidence < moderateConfidence {
			tags = append(tags, TagModerateConfidence)
		}
		return internal.PriorityMedium, tags
	}

	return internal.PriorityLow, tags
}

// EstimateCurationTime returns the expected review time in minutes, capped
// at 30.
func EstimateCurationTime(text string, tags []string) int {
	minutes := 5

	switch words := normalize.WordCount(text); {
	case words > 20:
		minutes += 3
	case words > 10:
		minutes += 2
	}

	has := func(tag string) bool {
		for _, t := range tags {
			if t == tag {
				return true
			}
		}
		return false
	}
	if has(TagHighRiskMedical) {
		minutes += 10
	} else if has(TagMedicalDomain) {
		minutes += 5
	}
	if has(TagCulturalExpression) {
		minutes += 3
	}
	if has(TagVeryLowConfidence) {
		minutes += 5
	}

	return min(minutes, maxCurationMinutes)
}

// Query selects tasks from the queue. Zero values mean no filter; Limit ≤ 0
// means no limit.
type Query struct {
	Limit    int
	Priority *internal.PriorityLevel
	Domain   string
}

// PrioritizedTasks scores every draft row of the queue tables and returns
// the tasks ordered by priority level, then by confidence (lowest first).
// Rows that compare equal keep table then id order.
func (s *Scorer) PrioritizedTasks(ctx context.Context, q Query) ([]internal.CurationTask, error) {
	if q.Priority != nil && !q.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority level %d", internal.ErrInvalidArgument, int(*q.Priority))
	}
	domain := strings.ToLower(strings.TrimSpace(q.Domain))

	var tasks []internal.CurationTask
	for _, table := range s.tables {
		entries, err := s.store.ListDrafts(ctx, table, store.DraftFilter{Domain: domain})
		if err != nil {
			return nil, fmt.Errorf("prioritized tasks: %w", err)
		}
		for _, e := range entries {
			level, tags := s.CalculatePriority(e.Confidence, e.Domain, e.SourceText, table)
			if q.Priority != nil && level != *q.Priority {
				continue
			}
			e.Priority = level
			tasks = append(tasks, internal.CurationTask{
				Entry:            e,
				Priority:         level,
				Tags:             tags,
				EstimatedMinutes: EstimateCurationTime(e.SourceText, tags),
			})
		}
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority < tasks[j].Priority
		}
		return tasks[i].Entry.Confidence < tasks[j].Entry.Confidence
	})

	if q.Limit > 0 && len(tasks) > q.Limit {
		tasks = tasks[:q.Limit]
	}
	return tasks, nil
}

// Summary counts queue tasks per priority level.
type Summary struct {
	Total   int                            `json:"total"`
	ByLevel map[internal.PriorityLevel]int `json:"-"`
}

// Count returns the number of tasks at level.
func (s Summary) Count(level internal.PriorityLevel) int { return s.ByLevel[level] }

// Named returns the counts keyed by level name, every level present.
func (s Summary) Named() map[string]int {
	out := make(map[string]int, len(internal.PriorityLevels))
	for _, l := range internal.PriorityLevels {
		out[l.String()] = s.ByLevel[l]
	}
	return out
}

// Summary scores the whole queue and counts tasks per level.
func (s *Scorer) Summary(ctx context.Context) (Summary, error) {
	tasks, err := s.PrioritizedTasks(ctx, Query{})
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Total: len(tasks), ByLevel: make(map[internal.PriorityLevel]int, len(internal.PriorityLevels))}
	for _, l := range internal.PriorityLevels {
		sum.ByLevel[l] = 0
	}
	for _, t := range tasks {
		sum.ByLevel[t.Priority]++
	}
	return sum, nil
}

// MarkTaskCompleted moves a row to reviewed and records the curator notes
// and curation time.
func (s *Scorer) MarkTaskCompleted(ctx context.Context, table internal.Table, id int64, notes string) error {
	if !table.Valid() {
		return fmt.Errorf("%w: unknown table %q", internal.ErrInvalidArgument, table)
	}
	err := s.store.UpdateStatus(ctx, table, id, store.StatusUpdate{
		Status: internal.StatusReviewed,
		Notes:  notes,
		At:     s.now(),
	})
	if err != nil {
		return fmt.Errorf("mark task completed: %w", err)
	}
	s.log.Info("task completed", "table", table, "id", id)
	return nil
}
