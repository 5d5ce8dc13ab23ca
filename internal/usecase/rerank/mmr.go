// Package rerank orders scored candidates by maximal marginal relevance
// under per-domain and near-duplicate caps.
package rerank

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain/ranking"
	"github.com/kailas-cloud/recipegate/internal/metrics"
)

// Defaults.
const (
	DefaultLambda = 0.7
	MinLambda     = 0.5
	MaxLambda     = 0.9
)

// Diversity caps.
const (
	top3Positions     = 3
	top3MaxPerDomain  = 1
	top10MaxPerDomain = 2
	duplicateTitleSim = 0.8
)

// Output is the reranked list with its diversity record.
type Output struct {
	Results    []ranking.Result
	Stats      Stats
	Violations []string
}

// Reranker applies MMR. λ is shared across requests and only moves through
// Feedback.
type Reranker struct {
	sim    Similarity
	lambda atomic.Uint64
	logger *zap.Logger
}

// New creates a Reranker. A nil sim uses TF-IDF; lambda outside [0.5,0.9]
// is clamped.
func New(sim Similarity, lambda float64, logger *zap.Logger) *Reranker {
	if sim == nil {
		sim = TFIDF{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reranker{sim: sim, logger: logger}
	r.setLambda(clampLambda(lambda))
	return r
}

// Lambda returns the current relevance weight.
func (r *Reranker) Lambda() float64 {
	return math.Float64frombits(r.lambda.Load())
}

func (r *Reranker) setLambda(l float64) {
	r.lambda.Store(math.Float64bits(l))
}

// Feedback moves λ by one bounded step and returns the new value.
func (r *Reranker) Feedback(precisionAt3 float64, violations int) (float64, string) {
	for {
		old := r.lambda.Load()
		next, reason := Adjust(math.Float64frombits(old), precisionAt3, violations)
		if r.lambda.CompareAndSwap(old, math.Float64bits(next)) {
			if reason != ReasonNoChange {
				r.logger.Info("MMR lambda adjusted",
					zap.Float64("lambda", next),
					zap.String("reason", reason),
				)
			}
			return next, reason
		}
	}
}

// Rerank orders scored by MMR, applies the diversity post-filter and keeps
// at most target results.
func (r *Reranker) Rerank(ctx context.Context, scored []ranking.Scored, target int) Output {
	lambda := r.Lambda()
	if len(scored) == 0 || target <= 0 {
		return Output{Stats: Stats{Lambda: lambda}}
	}

	rel := normalizeRelevance(scored)
	texts := make([]string, len(scored))
	for i, s := range scored {
		texts[i] = rerankText(s)
	}
	sim, err := r.sim.Similarities(ctx, texts)
	if err != nil || len(sim) != len(scored) {
		// Similarity implementations behind Fallback never get here.
		r.logger.Warn("Similarity failed, ranking by relevance only", zap.Error(err))
		sim = identity(len(scored))
	}

	order, novelty := greedy(rel, sim, lambda)

	out := Output{}
	perDomain := make(map[string]int)
	var titles []string
	for _, i := range order {
		if len(out.Results) == target {
			break
		}
		s := scored[i]
		d := s.Document.Domain()
		pos := len(out.Results)

		group, limit := "top10", top10MaxPerDomain
		if pos < top3Positions {
			group, limit = "top3", top3MaxPerDomain
		}
		if perDomain[d] >= limit {
			out.Violations = append(out.Violations, fmt.Sprintf("domain_limit_exceeded_%s_%s", d, group))
			metrics.RerankViolationsTotal.WithLabelValues("domain_limit").Inc()
			continue
		}

		title := s.Document.Title()
		if ts, dup := nearDuplicate(title, titles); dup {
			out.Violations = append(out.Violations, fmt.Sprintf("duplicate_title_similarity_%.2f", ts))
			metrics.RerankViolationsTotal.WithLabelValues("duplicate_title").Inc()
			continue
		}

		perDomain[d]++
		titles = append(titles, title)
		out.Results = append(out.Results, ranking.Result{
			Scored:        s,
			Domain:        d,
			Relevance:     rel[i],
			Novelty:       novelty[i],
			DiversityRank: pos + 1,
		})
	}

	out.Stats = computeStats(out.Results, lambda)
	if len(out.Violations) > 0 {
		r.logger.Debug("Diversity violations",
			zap.Int("count", len(out.Violations)),
			zap.Strings("violations", out.Violations),
		)
	}
	return out
}

// greedy returns every index in MMR order plus the novelty each had when
// picked. Ties go to the earlier index.
func greedy(rel []float64, sim [][]float64, lambda float64) ([]int, []float64) {
	n := len(rel)
	order := make([]int, 0, n)
	novelty := make([]float64, n)
	picked := make([]bool, n)
	maxSim := make([]float64, n)

	for len(order) < n {
		best, bestScore := -1, math.Inf(-1)
		for i := 0; i < n; i++ {
			if picked[i] {
				continue
			}
			nov := 1.0
			if len(order) > 0 {
				nov = 1 - maxSim[i]
			}
			if s := lambda*rel[i] + (1-lambda)*nov; s > bestScore {
				best, bestScore = i, s
			}
		}
		picked[best] = true
		if len(order) == 0 {
			novelty[best] = 1
		} else {
			novelty[best] = 1 - maxSim[best]
		}
		order = append(order, best)
		for i := 0; i < n; i++ {
			if !picked[i] && sim[i][best] > maxSim[i] {
				maxSim[i] = sim[i][best]
			}
		}
	}
	return order, novelty
}

// normalizeRelevance min-max scales totals to [0,1]. A single candidate or
// a flat list scores 1.
func normalizeRelevance(scored []ranking.Scored) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scored {
		lo = math.Min(lo, s.Score.Total)
		hi = math.Max(hi, s.Score.Total)
	}
	out := make([]float64, len(scored))
	for i, s := range scored {
		if hi > lo {
			out[i] = (s.Score.Total - lo) / (hi - lo)
		} else {
			out[i] = 1
		}
	}
	return out
}

func rerankText(s ranking.Scored) string {
	parts := []string{s.Document.Title(), s.Document.Snippet()}
	for _, h := range s.Verdict.Hits {
		if h.Snippet != "" {
			parts = append(parts, h.Snippet)
		}
	}
	return strings.Join(parts, " ")
}

func identity(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}
	return m
}

func nearDuplicate(title string, seen []string) (float64, bool) {
	for _, t := range seen {
		if s := TitleSimilarity(title, t); s >= duplicateTitleSim {
			return s, true
		}
	}
	return 0, false
}

// TitleSimilarity is the Jaccard index of the lowercased rune sets of a and b.
// Empty titles are never similar.
func TitleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	sa := runeSet(a)
	sb := runeSet(b)
	inter := 0
	for r := range sa {
		if _, ok := sb[r]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func runeSet(s string) map[rune]struct{} {
	out := make(map[rune]struct{})
	for _, r := range strings.ToLower(s) {
		out[r] = struct{}{}
	}
	return out
}
