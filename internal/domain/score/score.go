// Package score holds scoring results.
package score

// Component weights: each breakdown component is bounded by its weight.
const (
	MaxSafety     = 40.0
	MaxTrust      = 30.0
	MaxContext    = 20.0
	MaxPopularity = 10.0
	MaxTotal      = 100.0
)

// Breakdown is the per-component score of one candidate.
// Total is clamped to [0, MaxTotal].
type Breakdown struct {
	Safety     float64
	Trust      float64
	Context    float64
	Popularity float64
	Total      float64
	// Flagged marks a candidate whose safety verdict was ng.
	Flagged bool
}

// Sum returns the unclamped component sum.
func (b Breakdown) Sum() float64 {
	return b.Safety + b.Trust + b.Context + b.Popularity
}

// Gate penalty tiers.
const (
	PenaltyNone = 0.0
	PenaltySoft = 4.0
	PenaltyHard = 8.0
)

// GateResult is the outcome of context gating.
type GateResult struct {
	Passed  bool
	Penalty float64
	Bonus   float64
	Reasons []string
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
