// Package feature holds context features extracted from a candidate.
package feature

import "github.com/kailas-cloud/recipegate/internal/domain/opt"

// Source is the extraction tier that contributed a value.
type Source string

// Extraction tiers in priority order.
const (
	SourceJSONLD    Source = "jsonld"
	SourceMicrodata Source = "microdata"
	SourceHeuristic Source = "heuristic"
)

// Features are the context-relevant signals of one document.
// Every scalar is optional: unknown is never conflated with zero.
type Features struct {
	PrepMinutes          opt.Value[int]
	CookMinutes          opt.Value[int]
	TotalMinutes         opt.Value[int]
	IngredientCount      opt.Value[int]
	StepCount            opt.Value[int]
	CaloriesPerServing   opt.Value[float64]
	ProteinGrams         opt.Value[float64]
	AvgInstructionLength opt.Value[float64]
	VisualScore          opt.Value[float64]
	PopularityScore      opt.Value[float64]
	MacrosPresent        bool

	TimeKeywords     []string
	HealthKeywords   []string
	BeginnerKeywords []string
	EventKeywords    []string

	ExtractionSources []Source
	CompletionScore   float64
}

// fieldCount is the number of fields that count towards CompletionScore.
const fieldCount = 14

// Completion returns the fraction of populated fields in f.
func (f *Features) Completion() float64 {
	n := 0
	for _, known := range []bool{
		f.PrepMinutes.Known(), f.CookMinutes.Known(), f.TotalMinutes.Known(),
		f.IngredientCount.Known(), f.StepCount.Known(),
		f.CaloriesPerServing.Known(), f.ProteinGrams.Known(),
		f.AvgInstructionLength.Known(), f.VisualScore.Known(), f.PopularityScore.Known(),
		len(f.TimeKeywords) > 0, len(f.HealthKeywords) > 0,
		len(f.BeginnerKeywords) > 0, len(f.EventKeywords) > 0,
	} {
		if known {
			n++
		}
	}
	return float64(n) / fieldCount
}

// PrepOrTotal returns prep time, falling back to total time.
func (f *Features) PrepOrTotal() opt.Value[int] {
	return f.PrepMinutes.OrElse(f.TotalMinutes)
}

// HasSource reports whether tier s contributed to f.
func (f *Features) HasSource(s Source) bool {
	for _, x := range f.ExtractionSources {
		if x == s {
			return true
		}
	}
	return false
}

// BestSource returns the richest tier that contributed, or "" if none did.
func (f *Features) BestSource() Source {
	for _, s := range []Source{SourceJSONLD, SourceMicrodata, SourceHeuristic} {
		if f.HasSource(s) {
			return s
		}
	}
	return ""
}
