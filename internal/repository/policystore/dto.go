package policystore

import (
	"encoding/json"
	"fmt"

	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
)

// policyRow is the JSON value stored per hash field.
type policyRow struct {
	Kind   string  `json:"kind"`
	Boost  float64 `json:"boost"`
	Reason string  `json:"reason,omitempty"`
}

func policyToField(p dompolicy.Policy) (string, error) {
	data, err := json.Marshal(policyRow{Kind: string(p.Kind), Boost: p.Boost, Reason: p.Reason})
	if err != nil {
		return "", fmt.Errorf("marshal policy: %w", err)
	}
	return string(data), nil
}

func policyFromField(d, raw string) (dompolicy.Policy, error) {
	var row policyRow
	if err := json.Unmarshal([]byte(raw), &row); err != nil {
		return dompolicy.Policy{}, fmt.Errorf("unmarshal policy %s: %w", d, err)
	}
	p := dompolicy.Policy{Domain: d, Kind: dompolicy.Kind(row.Kind), Boost: row.Boost, Reason: row.Reason}
	if err := p.Validate(); err != nil {
		return dompolicy.Policy{}, fmt.Errorf("stored policy %s: %w", d, err)
	}
	return p, nil
}
