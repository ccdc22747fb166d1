package store

import (
	"encoding/json"
	"fmt"

	"github.com/valpere/kalimax-triage/internal"
)

// EncodeFlags serializes risk flags for the medical_risk_flags column.
func EncodeFlags(flags []internal.RiskFlag) (string, error) {
	b, err := json.Marshal(flags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeFlags parses a medical_risk_flags value. Invalid JSON and flags
// with an unknown risk level are reported as ErrMalformedEntry.
func DecodeFlags(raw string) ([]internal.RiskFlag, error) {
	var flags []internal.RiskFlag
	if err := json.Unmarshal([]byte(raw), &flags); err != nil {
		return nil, fmt.Errorf("%w: invalid medical_risk_flags: %v", internal.ErrMalformedEntry, err)
	}
	for _, f := range flags {
		if !f.RiskLevel.Valid() {
			return nil, fmt.Errorf("%w: unknown risk level %q for term %q", internal.ErrMalformedEntry, f.RiskLevel, f.Term)
		}
	}
	return flags, nil
}
