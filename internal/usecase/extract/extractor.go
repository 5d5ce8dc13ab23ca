// Package extract pulls context features out of candidate markup.
package extract

import (
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/feature"
)

// Strategy extracts a partial feature set from one markup tier.
// ok is false when the tier is absent or yielded nothing.
type Strategy interface {
	Source() feature.Source
	Extract(doc candidate.Document) (partial feature.Features, ok bool)
}

// Extractor runs strategies in priority order and merges their output.
// It is stateless and safe for concurrent use.
type Extractor struct {
	strategies []Strategy
}

// New creates an Extractor with the JSON-LD → microdata → heuristic chain.
func New() *Extractor {
	return NewWithStrategies(JSONLD{}, Microdata{}, Heuristic{})
}

// NewWithStrategies creates an Extractor over an explicit chain.
func NewWithStrategies(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// Extract returns the merged features of doc. Fields no tier could
// determine stay unknown.
func (e *Extractor) Extract(doc candidate.Document) feature.Features {
	var out feature.Features
	for _, s := range e.strategies {
		partial, ok := s.Extract(doc)
		if !ok {
			continue
		}
		merge(&out, partial)
		out.ExtractionSources = append(out.ExtractionSources, s.Source())
	}
	out.CompletionScore = out.Completion()
	return out
}

// merge folds src into dst: the first known scalar wins, keyword lists are
// unioned in first-seen order.
func merge(dst *feature.Features, src feature.Features) {
	dst.PrepMinutes = dst.PrepMinutes.OrElse(src.PrepMinutes)
	dst.CookMinutes = dst.CookMinutes.OrElse(src.CookMinutes)
	dst.TotalMinutes = dst.TotalMinutes.OrElse(src.TotalMinutes)
	dst.IngredientCount = dst.IngredientCount.OrElse(src.IngredientCount)
	dst.StepCount = dst.StepCount.OrElse(src.StepCount)
	dst.CaloriesPerServing = dst.CaloriesPerServing.OrElse(src.CaloriesPerServing)
	dst.ProteinGrams = dst.ProteinGrams.OrElse(src.ProteinGrams)
	dst.AvgInstructionLength = dst.AvgInstructionLength.OrElse(src.AvgInstructionLength)
	dst.VisualScore = dst.VisualScore.OrElse(src.VisualScore)
	dst.PopularityScore = dst.PopularityScore.OrElse(src.PopularityScore)
	dst.MacrosPresent = dst.MacrosPresent || src.MacrosPresent

	dst.TimeKeywords = union(dst.TimeKeywords, src.TimeKeywords)
	dst.HealthKeywords = union(dst.HealthKeywords, src.HealthKeywords)
	dst.BeginnerKeywords = union(dst.BeginnerKeywords, src.BeginnerKeywords)
	dst.EventKeywords = union(dst.EventKeywords, src.EventKeywords)
}

func union(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		seen[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		a = append(a, s)
	}
	return a
}
