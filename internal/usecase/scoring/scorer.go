// Package scoring gates and scores candidates for a usage context.
package scoring

import (
	"math"

	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/intent"
	"github.com/kailas-cloud/recipegate/internal/domain/policy"
	domsafety "github.com/kailas-cloud/recipegate/internal/domain/safety"
	"github.com/kailas-cloud/recipegate/internal/domain/score"
)

// Safety component values.
const (
	safetyOK      = 40.0
	safetyUnknown = 20.0
)

// Popularity used when no signal was extracted.
const defaultPopularity = 5.0

// Extractor produces context features for a document.
type Extractor interface {
	Extract(doc candidate.Document) feature.Features
}

// Result is the scorer output for one candidate.
type Result struct {
	Final     float64
	Breakdown score.Breakdown
	Features  feature.Features
	Gate      score.GateResult
}

// Scorer combines safety, trust, context and popularity into a 0-100 score.
type Scorer struct {
	extract Extractor
	gate    *Gate
	medians *Medians
}

// NewScorer creates a scorer.
func NewScorer(extract Extractor, gate *Gate, medians *Medians) *Scorer {
	return &Scorer{extract: extract, gate: gate, medians: medians}
}

// Medians exposes the imputation table for batch updates.
func (s *Scorer) Medians() *Medians { return s.medians }

// Calibrate extracts features from a sample of documents and folds them into
// the imputation table. The search path never calls it. Returns the table in
// effect.
func (s *Scorer) Calibrate(docs []candidate.Document) MedianTable {
	batch := make([]feature.Features, len(docs))
	for i, d := range docs {
		batch[i] = s.extract.Extract(d)
	}
	return s.medians.Update(batch)
}

// Score extracts features and scores doc. A nil verdict scores as unknown
// safety. An ng verdict is flagged and scores 0.
func (s *Scorer) Score(
	doc candidate.Document, verdict *domsafety.Verdict, k intent.Kind, p policy.Policy,
) Result {
	f := s.extract.Extract(doc)
	return s.ScoreFeatures(doc, verdict, f, k, p)
}

// ScoreFeatures scores doc from already extracted features.
func (s *Scorer) ScoreFeatures(
	doc candidate.Document, verdict *domsafety.Verdict, f feature.Features, k intent.Kind, p policy.Policy,
) Result {
	med := s.medians.Snapshot()

	var b score.Breakdown
	switch {
	case verdict == nil:
		b.Safety = safetyUnknown
	case verdict.Status == domsafety.OK:
		b.Safety = safetyOK
	case verdict.Status == domsafety.NG:
		b.Flagged = true
	}
	b.Trust = trust(f, p)
	b.Context = contextScore(f, k, med)
	b.Popularity = popularity(f)

	g := s.gate.Evaluate(f, k, doc)
	if b.Flagged {
		return Result{Final: 0, Breakdown: b, Features: f, Gate: g}
	}

	b.Total = score.Clamp(b.Sum()-g.Penalty+g.Bonus, 0, score.MaxTotal)
	return Result{Final: b.Total, Breakdown: b, Features: f, Gate: g}
}

// PolicyTrust maps a domain policy to its 0-15 trust contribution.
func PolicyTrust(p policy.Policy) float64 {
	switch p.Kind {
	case policy.Prefer:
		return 15 * math.Min(1, p.Boost/1.5)
	case policy.Exclude:
		return 15 * p.Boost
	case policy.Whitelist:
		return 12 * math.Min(1, p.Boost)
	default:
		return 10
	}
}

func trust(f feature.Features, p policy.Policy) float64 {
	t := PolicyTrust(p)
	switch f.BestSource() {
	case feature.SourceJSONLD:
		t += 10
	case feature.SourceMicrodata:
		t += 7
	case feature.SourceHeuristic:
		t += 3
	}
	t += 5 * f.CompletionScore
	return math.Min(score.MaxTrust, t)
}

func popularity(f feature.Features) float64 {
	p, ok := f.PopularityScore.Get()
	if !ok {
		return defaultPopularity
	}
	return score.Clamp(2*p, 0, score.MaxPopularity)
}
