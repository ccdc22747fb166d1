package risk

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/kalimax-triage/internal"
	"github.com/valpere/kalimax-triage/internal/store"
)

// RuleSpec is the configuration form of a vocabulary rule.
type RuleSpec struct {
	Term     string   `mapstructure:"term"`
	Level    string   `mapstructure:"level"`
	Category string   `mapstructure:"category"`
	Reason   string   `mapstructure:"reason"`
	Patterns []string `mapstructure:"patterns"`
	Variants []string `mapstructure:"variants"`
}

// RulesFromSpecs compiles configured rules. The first invalid spec aborts
// with ErrInvalidArgument.
func RulesFromSpecs(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i, s := range specs {
		level, err := internal.ParseRiskLevel(s.Level)
		if err != nil {
			return nil, fmt.Errorf("risk rule %d (%s): %w", i, s.Term, err)
		}
		category := s.Category
		if category == "" {
			category = "custom"
		}
		r, err := NewRule(s.Term, level, category, s.Reason, s.Patterns, s.Variants)
		if err != nil {
			return nil, fmt.Errorf("risk rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// TermSource lists curated high-risk terms.
type TermSource interface {
	HighRiskTerms(ctx context.Context, level internal.RiskLevel) ([]store.HighRiskTerm, error)
}

// StoreRules turns the curated critical terms of the high_risk table into
// Critical vocabulary rules. The English term, when present, is matched as
// a variant.
func StoreRules(ctx context.Context, src TermSource) ([]Rule, error) {
	terms, err := src.HighRiskTerms(ctx, internal.RiskCritical)
	if err != nil {
		return nil, fmt.Errorf("load high-risk terms: %w", err)
	}

	rules := make([]Rule, 0, len(terms))
	for _, t := range terms {
		if strings.TrimSpace(t.CreoleTerm) == "" {
			continue
		}
		category := t.Category
		if category == "" {
			category = "high_risk"
		}
		var variants []string
		if t.EnglishTerm != "" {
			variants = append(variants, t.EnglishTerm)
		}
		r, err := NewRule(t.CreoleTerm, internal.RiskCritical, category, "Curated high-risk term", nil, variants)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
