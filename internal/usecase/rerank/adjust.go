package rerank

import "math"

// Adjustment reasons.
const (
	ReasonPrecisionLow        = "p_at_3_low"
	ReasonDiversityViolations = "diversity_violations"
	ReasonNoChange            = "no_change"
)

const (
	lambdaStep          = 0.05
	targetPrecisionAt3  = 0.8
	tolerableViolations = 2
)

// Adjust moves λ one step towards relevance when top-3 precision is low,
// otherwise towards novelty when violations pile up. The result stays in
// [MinLambda, MaxLambda].
func Adjust(lambda, precisionAt3 float64, violations int) (float64, string) {
	switch {
	case precisionAt3 < targetPrecisionAt3:
		return clampLambda(round2(lambda + lambdaStep)), ReasonPrecisionLow
	case violations > tolerableViolations:
		return clampLambda(round2(lambda - lambdaStep)), ReasonDiversityViolations
	default:
		return clampLambda(lambda), ReasonNoChange
	}
}

func clampLambda(l float64) float64 {
	if math.IsNaN(l) || l == 0 {
		return DefaultLambda
	}
	return math.Max(MinLambda, math.Min(MaxLambda, l))
}

// round2 keeps repeated ±0.05 steps free of float drift.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
