package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/batcher"
	"github.com/valpere/kalimax-triage/internal/priority"
	"github.com/valpere/kalimax-triage/internal/risk"
)

type QueueSummary struct {
	TotalItems    int `json:"total_items"`
	CriticalItems int `json:"critical_items"`
	HighItems     int `json:"high_items"`
}

type RiskSummary struct {
	TotalFlagged int `json:"total_flagged"`
	CriticalRisk int `json:"critical_risk"`
	HighRisk     int `json:"high_risk"`
}

type BatchSummary struct {
	TotalBatches    int      `json:"total_batches"`
	RegionsCovered  []string `json:"regions_covered"`
	ExpressionTypes []string `json:"expression_types"`
	Expressions     int      `json:"total_expressions"`
}

// Report is the aggregate curation report.
type Report struct {
	ReportID    string       `json:"report_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Overview    Overview     `json:"overview"`
	Queue       QueueSummary `json:"priority_queue"`
	Risk        RiskSummary  `json:"medical_risks"`
	Batches     BatchSummary `json:"cultural_batches"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// BuildReport gathers the four report sections concurrently. All sections
// are read-only; the first failure cancels the others.
func (c *Coordinator) BuildReport(ctx context.Context) (Report, error) {
	rep := Report{
		ReportID:    uuid.NewString(),
		GeneratedAt: c.now().UTC(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ov, err := c.Overview(gctx)
		if err != nil {
			return err
		}
		rep.Overview = ov
		return nil
	})

	g.Go(func() error {
		tasks, err := c.scorer.PrioritizedTasks(gctx, priority.Query{Limit: c.opts.ReportQueueLimit})
		if err != nil {
			return err
		}
		rep.Queue = summarizeQueue(tasks)
		return nil
	})

	g.Go(func() error {
		flagged, _, err := c.risk.FlaggedEntries(gctx, "", 0)
		if err != nil {
			return err
		}
		rep.Risk = summarizeRisk(flagged)
		return nil
	})

	g.Go(func() error {
		batches, err := c.batcher.CreateBatches(gctx, batcher.Options{Size: c.opts.BatchSize})
		if err != nil {
			return err
		}
		rep.Batches = summarizeBatches(batches)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("build report: %w", err)
	}

	// Both sections read the same stored flags; the overview keeps the warnings.
	rep.Warnings = rep.Overview.Warnings
	return rep, nil
}

func summarizeQueue(tasks []internal.CurationTask) QueueSummary {
	s := QueueSummary{TotalItems: len(tasks)}
	for _, t := range tasks {
		switch t.Priority {
		case internal.PriorityCritical:
			s.CriticalItems++
		case internal.PriorityHigh:
			s.HighItems++
		}
	}
	return s
}

// summarizeRisk counts an entry once per level it carries, so an entry with
// both a critical and a high flag appears in both counts.
func summarizeRisk(flagged []risk.FlaggedEntry) RiskSummary {
	s := RiskSummary{TotalFlagged: len(flagged)}
	for _, e := range flagged {
		var critical, high bool
		for _, f := range e.Flags {
			switch f.RiskLevel {
			case internal.RiskCritical:
				critical = true
			case internal.RiskHigh:
				high = true
			}
		}
		if critical {
			s.CriticalRisk++
		}
		if high {
			s.HighRisk++
		}
	}
	return s
}

func summarizeBatches(batches []batcher.Batch) BatchSummary {
	s := BatchSummary{
		TotalBatches:    len(batches),
		RegionsCovered:  []string{},
		ExpressionTypes: []string{},
	}
	regions := make(map[batcher.Region]bool)
	types := make(map[batcher.ExpressionType]bool)
	for _, b := range batches {
		s.Expressions += len(b.Entries)
		if !regions[b.Region] {
			regions[b.Region] = true
			s.RegionsCovered = append(s.RegionsCovered, string(b.Region))
		}
		if !types[b.Type] {
			types[b.Type] = true
			s.ExpressionTypes = append(s.ExpressionTypes, string(b.Type))
		}
	}
	return s
}

// ExportCurationReport builds the report and writes it as indented JSON to
// path. When writing fails the built report is still returned together with
// an ErrExportFailure error.
func (c *Coordinator) ExportCurationReport(ctx context.Context, path string) (Report, error) {
	rep, err := c.BuildReport(ctx)
	if err != nil {
		return Report{}, err
	}
	if err := writeReport(rep, path); err != nil {
		c.log.Error("report export failed", "path", path, "error", err)
		return rep, err
	}
	c.log.Info("curation report exported",
		"report_id", rep.ReportID,
		"path", path,
		"queue", rep.Queue.TotalItems,
		"flagged", rep.Risk.TotalFlagged,
		"batches", rep.Batches.TotalBatches)
	return rep, nil
}

func writeReport(rep Report, path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("%w: encode report: %v", internal.ErrExportFailure, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create %s: %v", internal.ErrExportFailure, dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %v", internal.ErrExportFailure, err)
	}
	return nil
}
