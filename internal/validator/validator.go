// Package validator checks caller-supplied filter and enum arguments before
// any store access happens.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/valpere/kalimax-triage/internal"
)

// Validator checks arguments against the closed enums of the data model and
// the region and expression type vocabularies of a batch taxonomy.
type Validator struct {
	regions []string
	types   []string
}

// New creates a Validator. regions and types are the accepted values for
// the batch filters; they are usually taken from the batch taxonomy.
func New(regions, types []string) *Validator {
	return &Validator{
		regions: slices.Clone(regions),
		types:   slices.Clone(types),
	}
}

// Table parses a required table name.
func (v *Validator) Table(s string) (internal.Table, error) {
	return internal.ParseTable(s)
}

// Status parses a required curation status.
func (v *Validator) Status(s string) (internal.CurationStatus, error) {
	return internal.ParseStatus(s)
}

// Priority parses an optional priority filter. An empty string means no
// filter and yields nil.
func (v *Validator) Priority(s string) (*internal.PriorityLevel, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	p, err := internal.ParsePriority(s)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RiskLevel parses an optional risk level filter. An empty string means no
// filter.
func (v *Validator) RiskLevel(s string) (internal.RiskLevel, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return internal.ParseRiskLevel(s)
}

// Region checks an optional region filter.
func (v *Validator) Region(s string) (string, error) {
	return oneOf("region", s, v.regions)
}

// ExpressionType checks an optional expression type filter.
func (v *Validator) ExpressionType(s string) (string, error) {
	return oneOf("expression type", s, v.types)
}

// Domain folds an optional domain filter. Domains are open-ended, so any
// non-empty value is accepted.
func (v *Validator) Domain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BatchSize rejects non-positive batch sizes.
func (v *Validator) BatchSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: batch size must be positive, got %d", internal.ErrInvalidArgument, n)
	}
	return nil
}

func oneOf(what, s string, allowed []string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	if !slices.Contains(allowed, s) {
		return "", fmt.Errorf("%w: unknown %s %q (want one of %s)",
			internal.ErrInvalidArgument, what, s, strings.Join(allowed, ", "))
	}
	return s, nil
}
