// Package coordinator exposes the risk classifier, priority scorer and
// regional batcher behind one read/write surface for reviewers.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/batcher"
	"github.com/valpere/kalimax-triage/internal/priority"
	"github.com/valpere/kalimax-triage/internal/risk"
	"github.com/valpere/kalimax-triage/internal/store"
	"github.com/valpere/kalimax-triage/internal/validator"
)

const defaultActivityDays = 7

// Store is the part of the corpus store the coordinator reads and writes
// directly.
type Store interface {
	StatusCounts(ctx context.Context) (map[internal.Table]map[string]int, error)
	PriorityCounts(ctx context.Context) (map[internal.PriorityLevel]int, error)
	RegionCounts(ctx context.Context) (map[string]int, error)
	RecentActivity(ctx context.Context, since time.Time) (map[string]int, error)
	UpdateStatus(ctx context.Context, table internal.Table, id int64, u store.StatusUpdate) error
}

type Options struct {
	BatchSize        int // used when a batch request leaves the size unset
	ReportQueueLimit int // queue tasks scanned for the report; 0 scans all
	ActivityDays     int // recent activity window of the overview
	Logger           *slog.Logger
	Now              func() time.Time
}

type Coordinator struct {
	store    Store
	risk     *risk.Classifier
	scorer   *priority.Scorer
	batcher  *batcher.Batcher
	validate *validator.Validator
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

func New(st Store, rc *risk.Classifier, sc *priority.Scorer, b *batcher.Batcher, opts Options) *Coordinator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = batcher.DefaultBatchSize
	}
	if opts.ActivityDays <= 0 {
		opts.ActivityDays = defaultActivityDays
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tax := b.Taxonomy()
	var regions, types []string
	for _, r := range tax.Regions() {
		regions = append(regions, string(r))
	}
	for _, t := range tax.Types() {
		types = append(types, string(t))
	}

	return &Coordinator{
		store:    st,
		risk:     rc,
		scorer:   sc,
		batcher:  b,
		validate: validator.New(regions, types),
		opts:     opts,
		log:      opts.Logger,
		now:      opts.Now,
	}
}

// Overview is the aggregate state of the corpus.
type Overview struct {
	Status         map[internal.Table]map[string]int `json:"status_by_table"`
	Priority       map[string]int                    `json:"priority_distribution"`
	RiskLevels     map[internal.RiskLevel]int        `json:"risk_level_distribution"`
	Regions        map[string]int                    `json:"expression_regions"`
	RecentActivity map[string]int                    `json:"recent_activity"`
	Warnings       []string                          `json:"warnings,omitempty"`
}

// Overview counts entries by status, stored priority, worst stored risk
// level and expression region, and updates per day over the activity
// window.
func (c *Coordinator) Overview(ctx context.Context) (Overview, error) {
	var ov Overview
	var err error

	if ov.Status, err = c.store.StatusCounts(ctx); err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}

	counts, err := c.store.PriorityCounts(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}
	ov.Priority = make(map[string]int, len(internal.PriorityLevels))
	for _, l := range internal.PriorityLevels {
		ov.Priority[l.String()] = counts[l]
	}

	flagged, warnings, err := c.risk.FlaggedEntries(ctx, "", 0)
	if err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}
	ov.Warnings = warnings
	ov.RiskLevels = make(map[internal.RiskLevel]int, len(internal.RiskLevels))
	for _, l := range internal.RiskLevels {
		ov.RiskLevels[l] = 0
	}
	for _, e := range flagged {
		if worst := internal.WorstRiskLevel(e.Flags); worst != "" {
			ov.RiskLevels[worst]++
		}
	}

	if ov.Regions, err = c.store.RegionCounts(ctx); err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}

	since := c.now().AddDate(0, 0, -c.opts.ActivityDays)
	if ov.RecentActivity, err = c.store.RecentActivity(ctx, since); err != nil {
		return Overview{}, fmt.Errorf("overview: %w", err)
	}
	return ov, nil
}

// QueueFilter selects queue tasks. Priority accepts a level name or ordinal;
// empty fields mean no filter and Limit ≤ 0 means no limit.
type QueueFilter struct {
	Limit    int
	Priority string
	Domain   string
}

// PriorityQueue returns the prioritized review queue.
func (c *Coordinator) PriorityQueue(ctx context.Context, f QueueFilter) ([]internal.CurationTask, error) {
	level, err := c.validate.Priority(f.Priority)
	if err != nil {
		return nil, err
	}
	return c.scorer.PrioritizedTasks(ctx, priority.Query{
		Limit:    f.Limit,
		Priority: level,
		Domain:   c.validate.Domain(f.Domain),
	})
}

// MedicalRiskItems returns entries with stored risk flags, optionally only
// those carrying a flag of the given level.
func (c *Coordinator) MedicalRiskItems(ctx context.Context, level string, limit int) ([]risk.FlaggedEntry, []string, error) {
	lvl, err := c.validate.RiskLevel(level)
	if err != nil {
		return nil, nil, err
	}
	return c.risk.FlaggedEntries(ctx, lvl, limit)
}

// BatchFilter selects cultural batches. A zero Size uses the configured
// batch size.
type BatchFilter struct {
	Size   int
	Region string
	Type   string
}

// CulturalBatches builds the regional review batches.
func (c *Coordinator) CulturalBatches(ctx context.Context, f BatchFilter) ([]batcher.Batch, error) {
	size := f.Size
	if size == 0 {
		size = c.opts.BatchSize
	}
	if err := c.validate.BatchSize(size); err != nil {
		return nil, err
	}
	region, err := c.validate.Region(f.Region)
	if err != nil {
		return nil, err
	}
	typ, err := c.validate.ExpressionType(f.Type)
	if err != nil {
		return nil, err
	}
	return c.batcher.CreateBatches(ctx, batcher.Options{
		Size:   size,
		Region: batcher.Region(region),
		Type:   batcher.ExpressionType(typ),
	})
}

// UpdateCurationStatus records a reviewer decision. The table and status are
// checked before the store is touched; an unknown id is ErrNotFound.
func (c *Coordinator) UpdateCurationStatus(ctx context.Context, id int64, table, status, notes string) error {
	t, err := c.validate.Table(table)
	if err != nil {
		return err
	}
	s, err := c.validate.Status(status)
	if err != nil {
		return err
	}

	err = c.store.UpdateStatus(ctx, t, id, store.StatusUpdate{Status: s, Notes: notes, At: c.now()})
	if err != nil {
		return fmt.Errorf("update curation status: %w", err)
	}
	c.log.Info("curation status updated", "table", t, "id", id, "status", s)
	return nil
}
