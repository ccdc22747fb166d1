package internal

import (
	"fmt"
	"strings"
	"time"
)

// Table names a logical table of the shared corpus store.
type Table string

const (
	TableCorpus      Table = "corpus"
	TableGlossary    Table = "glossary"
	TableExpressions Table = "expressions"
)

// Tables lists every known table in sweep order.
var Tables = []Table{TableCorpus, TableGlossary, TableExpressions}

func (t Table) Valid() bool {
	switch t {
	case TableCorpus, TableGlossary, TableExpressions:
		return true
	}
	return false
}

func ParseTable(s string) (Table, error) {
	t := Table(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown table %q", ErrInvalidArgument, s)
	}
	return t, nil
}

// CurationStatus is the review state of an entry. Only the values declared
// here may ever be written to the store.
type CurationStatus string

const (
	StatusDraft         CurationStatus = "draft"
	StatusReviewed      CurationStatus = "reviewed"
	StatusApproved      CurationStatus = "approved"
	StatusRejected      CurationStatus = "rejected"
	StatusNeedsRevision CurationStatus = "needs_revision"
)

var Statuses = []CurationStatus{StatusDraft, StatusReviewed, StatusApproved, StatusRejected, StatusNeedsRevision}

func (s CurationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusReviewed, StatusApproved, StatusRejected, StatusNeedsRevision:
		return true
	}
	return false
}

func ParseStatus(s string) (CurationStatus, error) {
	st := CurationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown curation status %q", ErrInvalidArgument, s)
	}
	return st, nil
}

// PriorityLevel orders review work. Lower ordinals are more urgent.
type PriorityLevel int

const (
	PriorityCritical PriorityLevel = 1
	PriorityHigh     PriorityLevel = 2
	PriorityMedium   PriorityLevel = 3
	PriorityLow      PriorityLevel = 4
)

var PriorityLevels = []PriorityLevel{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

func (p PriorityLevel) Valid() bool {
	return p >= PriorityCritical && p <= PriorityLow
}

func (p PriorityLevel) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityLow:
		return "LOW"
	}
	return fmt.Sprintf("PriorityLevel(%d)", int(p))
}

// ParsePriority accepts either the level name (case-insensitive) or its ordinal.
func ParsePriority(s string) (PriorityLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL", "1":
		return PriorityCritical, nil
	case "HIGH", "2":
		return PriorityHigh, nil
	case "MEDIUM", "3":
		return PriorityMedium, nil
	case "LOW", "4":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("%w: unknown priority level %q", ErrInvalidArgument, s)
}

// RiskLevel is the severity of a risk flag.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskModerate RiskLevel = "moderate"
	RiskLow      RiskLevel = "low"
)

var RiskLevels = []RiskLevel{RiskCritical, RiskHigh, RiskModerate, RiskLow}

// Rank returns 0 for the most severe level. Unknown levels rank last.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskCritical:
		return 0
	case RiskHigh:
		return 1
	case RiskModerate:
		return 2
	case RiskLow:
		return 3
	}
	return 4
}

func (r RiskLevel) Valid() bool { return r.Rank() < 4 }

// AtLeast reports whether r is as severe as other or more.
func (r RiskLevel) AtLeast(other RiskLevel) bool { return r.Rank() <= other.Rank() }

func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown risk level %q", ErrInvalidArgument, s)
	}
	return r, nil
}

// RiskFlag records that a span of entry text matched a safety-relevant rule.
type RiskFlag struct {
	Term                    string    `json:"term"`
	RiskLevel               RiskLevel `json:"risk_level"`
	Category                string    `json:"category"`
	Reason                  string    `json:"reason"`
	MatchedPattern          string    `json:"matched_pattern"`
	Variants                []string  `json:"haitian_variants"`
	RequiresImmediateReview bool      `json:"requires_immediate_review"`
}

// WorstRiskLevel returns the most severe level among flags, or "" when empty.
func WorstRiskLevel(flags []RiskFlag) RiskLevel {
	var worst RiskLevel
	for _, f := range flags {
		if worst == "" || f.RiskLevel.Rank() < worst.Rank() {
			worst = f.RiskLevel
		}
	}
	return worst
}

// TranslationEntry is one draft pair read from the corpus store. Text,
// domain and confidence are owned upstream; flags, priority, status and
// notes are derived here.
type TranslationEntry struct {
	ID           int64          `json:"id"`
	Table        Table          `json:"table"`
	SourceText   string         `json:"source_text"`
	TargetTexts  []string       `json:"target_texts"`
	Domain       string         `json:"domain,omitempty"`
	Confidence   float64        `json:"confidence"`
	Status       CurationStatus `json:"curation_status"`
	RiskFlags    []RiskFlag     `json:"risk_flags,omitempty"`
	Priority     PriorityLevel  `json:"priority_level,omitempty"`
	NeedsReview  bool           `json:"requires_immediate_review"`
	Region       string         `json:"region,omitempty"`
	Register     string         `json:"register,omitempty"`
	CulturalNote string         `json:"cultural_note,omitempty"`
	CuratorNotes string         `json:"curator_notes,omitempty"`
	UpdatedAt    string         `json:"updated_at,omitempty"`
}

// Target returns the i-th target text or "" when absent.
func (e TranslationEntry) Target(i int) string {
	if i < 0 || i >= len(e.TargetTexts) {
		return ""
	}
	return e.TargetTexts[i]
}

// Texts returns the source text followed by every non-empty target text.
func (e TranslationEntry) Texts() []string {
	texts := make([]string, 0, 1+len(e.TargetTexts))
	if e.SourceText != "" {
		texts = append(texts, e.SourceText)
	}
	for _, t := range e.TargetTexts {
		if t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}

// CurationTask is an item of the generic review queue.
type CurationTask struct {
	Entry            TranslationEntry `json:"entry"`
	Priority         PriorityLevel    `json:"priority_level"`
	Tags             []string         `json:"tags"`
	EstimatedMinutes int              `json:"estimated_time_minutes"`
}

// SweepSummary reports the outcome of one classification sweep.
type SweepSummary struct {
	RunID    string        `json:"run_id"`
	Tables   []Table       `json:"tables"`
	Checked  int           `json:"checked"`
	Flagged  int           `json:"flagged"`
	Critical int           `json:"critical"`
	High     int           `json:"high"`
	Skipped  int           `json:"skipped"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Degraded reports whether any row was skipped during the sweep.
func (s SweepSummary) Degraded() bool { return s.Skipped > 0 }
