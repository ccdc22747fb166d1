package batcher

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/kalimax-triage/internal"
)

// CSVHeader is the fixed column list of an exported batch.
var CSVHeader = []string{
	"id", "creole", "idiomatic_en", "localized_ht", "register",
	"region", "cultural_note", "confidence", "validation_status",
	"expert_notes", "approved", "needs_revision",
}

// Metadata is the JSON sidecar written next to a batch CSV.
type Metadata struct {
	BatchID          string         `json:"batch_id"`
	Region           Region         `json:"region"`
	Type             ExpressionType `json:"expression_type"`
	ExpertDomain     string         `json:"expert_domain"`
	EstimatedMinutes int            `json:"estimated_review_time"`
	PriorityScore    float64        `json:"priority_score"`
	Criteria         []string       `json:"validation_criteria"`
	CulturalNotes    []string       `json:"cultural_notes"`
	ExpressionCount  int            `json:"expression_count"`
}

// MetadataFor builds the sidecar of a batch.
func MetadataFor(b Batch) Metadata {
	return Metadata{
		BatchID:          b.ID,
		Region:           b.Region,
		Type:             b.Type,
		ExpertDomain:     b.ExpertDomain,
		EstimatedMinutes: b.EstimatedMinutes,
		PriorityScore:    b.PriorityScore,
		Criteria:         b.Criteria,
		CulturalNotes:    b.CulturalNotes,
		ExpressionCount:  len(b.Entries),
	}
}

// EncodeCSV renders the reviewer sheet of a batch.
func EncodeCSV(b Batch) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return nil, err
	}
	for _, e := range b.Entries {
		row := []string{
			strconv.FormatInt(e.ID, 10),
			e.SourceText,
			e.Target(0),
			e.Target(1),
			e.Register,
			e.Region,
			e.CulturalNote,
			strconv.FormatFloat(e.Confidence, 'f', -1, 64),
			"pending",
			"",
			"",
			"",
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// EncodeMetadata renders the sidecar as indented UTF-8 JSON.
func EncodeMetadata(b Batch) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(MetadataFor(b)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportBatch writes {dir}/{batch_id}.csv and {dir}/{batch_id}_metadata.json
// and returns the CSV path. dir is created when missing.
func (b *Batcher) ExportBatch(batch Batch, dir string) (string, error) {
	if batch.ID == "" {
		return "", fmt.Errorf("%w: batch without id", internal.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", internal.ErrExportFailure, dir, err)
	}

	sheet, err := EncodeCSV(batch)
	if err != nil {
		return "", fmt.Errorf("%w: encode %s: %v", internal.ErrExportFailure, batch.ID, err)
	}
	meta, err := EncodeMetadata(batch)
	if err != nil {
		return "", fmt.Errorf("%w: encode %s metadata: %v", internal.ErrExportFailure, batch.ID, err)
	}

	csvPath := filepath.Join(dir, batch.ID+".csv")
	if err := os.WriteFile(csvPath, sheet, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", internal.ErrExportFailure, err)
	}
	metaPath := filepath.Join(dir, batch.ID+"_metadata.json")
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", internal.ErrExportFailure, err)
	}

	b.log.Info("batch exported", "batch_id", batch.ID, "path", csvPath, "expressions", len(batch.Entries))
	return csvPath, nil
}

// ExportBatches exports batches concurrently. Paths are returned in batch
// order; the first failure cancels the exports not yet started.
func (b *Batcher) ExportBatches(ctx context.Context, batches []Batch, dir string) ([]string, error) {
	paths := make([]string, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, batch := range batches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := b.ExportBatch(batch, dir)
			if err != nil {
				return err
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return paths, err
	}
	return paths, nil
}
