// Package retrieval runs the stepwise search pipeline: shaped passes,
// recipe-type filtering, the allergen safety gate, scoring and reranking.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/domain/allergen"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/intent"
	"github.com/kailas-cloud/recipegate/internal/domain/policy"
	"github.com/kailas-cloud/recipegate/internal/domain/ranking"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
	domsafety "github.com/kailas-cloud/recipegate/internal/domain/safety"
	"github.com/kailas-cloud/recipegate/internal/domain/telemetry"
	logpkg "github.com/kailas-cloud/recipegate/internal/logger"
	"github.com/kailas-cloud/recipegate/internal/metrics"
	"github.com/kailas-cloud/recipegate/internal/usecase/rerank"
	"github.com/kailas-cloud/recipegate/internal/usecase/scoring"
	"github.com/kailas-cloud/recipegate/internal/usecase/shaping"
)

// MaxQueryRunes bounds the user query.
const MaxQueryRunes = 200

const statsTimeout = 2 * time.Second

// Options are the pipeline limits.
type Options struct {
	MinSafe             int
	Target              int
	MaxCandidates       int
	Workers             int
	RecipeConfidenceMin float64
	Budgets             domretrieval.Budgets
	Retry               RetryPolicy
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		MinSafe:             3,
		Target:              10,
		MaxCandidates:       50,
		RecipeConfidenceMin: 0.2,
		Budgets: domretrieval.Budgets{
			Retrieval: 3 * time.Second,
			Safety:    500 * time.Millisecond,
			Scoring:   500 * time.Millisecond,
		},
		Retry: DefaultRetryPolicy(),
	}
}

// Deps are the collaborators of the pipeline. Sink and Stats can be nil.
type Deps struct {
	Search    ExternalSearch
	Shaper    QueryShaper
	Policies  PolicySource
	Safety    SafetyGate
	Extractor Extractor
	Scorer    Scorer
	Reranker  Reranker
	Sink      TelemetrySink
	Stats     DomainStats
}

// Request is one search.
type Request struct {
	Query     string
	Allergens allergen.Selection
	Context   intent.Kind
	Target    int
	AnonID    string
}

// Response is the ranked list with its metrics. Results is never nil.
type Response struct {
	Results []ranking.Result
	Metrics domretrieval.Metrics
	Stats   rerank.Stats
}

// Service orchestrates stepwise retrieval.
type Service struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
	sleep  sleepFunc
	now    func() time.Time
}

// New creates a Service.
func New(deps Deps, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Shaper == nil {
		deps.Shaper = shaping.NewShaper()
	}
	return &Service{deps: deps, opts: opts, logger: logger, sleep: sleepCtx, now: time.Now}
}

// candidateState is one processed candidate of a pass.
type candidateState struct {
	doc      candidate.Document
	pass     domretrieval.PassKind
	bucket   domretrieval.Bucket
	verdict  domsafety.Verdict
	features feature.Features
}

// Search runs the pipeline. Only a broad-pass missing_credentials failure
// or invalid input fails the request; any other failure degrades recall.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" || utf8.RuneCountInString(query) > MaxQueryRunes {
		return Response{}, fmt.Errorf("%w: query must be 1-%d characters", domain.ErrInvalidQuery, MaxQueryRunes)
	}
	if !req.Context.IsValid() {
		return Response{}, fmt.Errorf("%w: %q", domain.ErrUnknownContext, req.Context)
	}
	target := req.Target
	if target <= 0 {
		target = s.opts.Target
	}
	target = min(target, s.opts.MaxCandidates)

	table := s.deps.Policies.Snapshot()
	var m domretrieval.Metrics

	safe, err := s.retrieve(ctx, query, req.Allergens, table, target, &m)
	if err != nil {
		return Response{}, err
	}

	start := s.now()
	scored := s.score(safe, req.Context, table)
	out := s.deps.Reranker.Rerank(ctx, scored, target)
	m.Timings.Scoring = s.now().Sub(start)

	m.Violations = out.Violations
	m.Lambda = out.Stats.Lambda
	m.Overruns = s.opts.Budgets.Overruns(m.Timings)
	s.observe(m)

	results := out.Results
	if results == nil {
		results = []ranking.Result{}
	}
	resp := Response{Results: results, Metrics: m, Stats: out.Stats}

	logpkg.FromContextOr(ctx, s.logger).Info("Search completed",
		zap.Int("results", len(results)),
		zap.Int("passes", len(m.Passes)),
		zap.Int("safe_ok", m.Counts.SafetyOK),
		zap.Int("violations", len(m.Violations)),
	)
	s.emit(ctx, req, query, resp)
	return resp, nil
}

// retrieve runs the passes and returns the safety-ok candidates in
// processing order.
func (s *Service) retrieve(
	ctx context.Context, query string, sel allergen.Selection,
	table *policy.Table, target int, m *domretrieval.Metrics,
) ([]candidateState, error) {
	seen := make(map[string]struct{})
	var safe []candidateState

	passes := domretrieval.Passes()
	for i, pass := range passes {
		if i > 0 && (m.Counts.SafetyOK >= s.opts.MinSafe || m.Counts.SafetyOK >= target) {
			break
		}
		if len(seen) >= s.opts.MaxCandidates {
			break
		}
		if ctx.Err() != nil {
			for _, skipped := range passes[i:] {
				m.Passes = append(m.Passes, domretrieval.PassRecord{Kind: skipped, Err: domretrieval.ReasonDeadline})
				metrics.PassesTotal.WithLabelValues(string(skipped), domretrieval.ReasonDeadline).Inc()
			}
			logpkg.FromContextOr(ctx, s.logger).Warn("Deadline reached, skipping remaining passes", zap.String("pass", string(pass)))
			break
		}

		docs, rec, err := s.runPass(ctx, query, pass)
		m.Passes = append(m.Passes, rec)
		m.Timings.Retrieval += rec.Elapsed
		if err != nil {
			if pass == domretrieval.PassBroad && errors.Is(err, domain.ErrMissingCredentials) {
				return nil, fmt.Errorf("broad pass: %w", err)
			}
			continue
		}
		m.Counts.RetrievalTotal += len(docs)

		var fresh []candidate.Document
		for _, d := range docs {
			if len(seen) >= s.opts.MaxCandidates {
				break
			}
			if _, dup := seen[d.Key()]; dup {
				continue
			}
			seen[d.Key()] = struct{}{}
			fresh = append(fresh, d)
		}

		start := s.now()
		states := mapOrdered(s.opts.Workers, fresh, func(d candidate.Document) candidateState {
			return s.process(d, pass, sel, table)
		})
		m.Timings.Safety += s.now().Sub(start)

		for _, st := range states {
			m.Counts.Add(st.bucket)
			metrics.CandidatesTotal.WithLabelValues(string(st.bucket)).Inc()
			if st.bucket == domretrieval.BucketOK {
				safe = append(safe, st)
			}
		}
	}
	return safe, nil
}

// runPass performs one retried provider call.
func (s *Service) runPass(
	ctx context.Context, query string, pass domretrieval.PassKind,
) ([]candidate.Document, domretrieval.PassRecord, error) {
	shaped := s.deps.Shaper.Shape(query, pass)
	params := s.deps.Shaper.PassParams(pass)

	start := s.now()
	docs, attempts, err := retryDo(ctx, s.opts.Retry, s.sleep,
		func(ctx context.Context) ([]candidate.Document, error) {
			return s.deps.Search.Search(ctx, shaped, params)
		})
	rec := domretrieval.PassRecord{
		Kind:        pass,
		ShapedQuery: shaped,
		ResultCount: len(docs),
		Elapsed:     s.now().Sub(start),
		Attempts:    attempts,
	}

	if err != nil {
		rec.Err = string(domain.RetrievalKindOf(err))
		if ctx.Err() != nil {
			rec.Err = domretrieval.ReasonDeadline
		}
		metrics.PassesTotal.WithLabelValues(string(pass), rec.Err).Inc()
		logpkg.FromContextOr(ctx, s.logger).Warn("Retrieval pass failed",
			zap.String("pass", string(pass)),
			zap.String("reason", rec.Err),
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", rec.Elapsed),
			zap.Error(err),
		)
		return nil, rec, err
	}

	metrics.PassesTotal.WithLabelValues(string(pass), "ok").Inc()
	s.logger.Debug("Retrieval pass completed",
		zap.String("pass", string(pass)),
		zap.Int("results", len(docs)),
		zap.Int("attempts", attempts),
		zap.Duration("elapsed", rec.Elapsed),
	)
	return docs, rec, nil
}

// process buckets one candidate. Features are only extracted for safe ones.
func (s *Service) process(
	d candidate.Document, pass domretrieval.PassKind, sel allergen.Selection, table *policy.Table,
) candidateState {
	st := candidateState{doc: d, pass: pass}
	if shaping.RecipeConfidence(d.Title(), d.Snippet(), d.URL()) < s.opts.RecipeConfidenceMin ||
		table.ShouldExclude(d.URL(), pass) {
		st.bucket = domretrieval.BucketNonRecipe
		return st
	}

	st.verdict = s.deps.Safety.Evaluate(d, sel)
	switch st.verdict.Status {
	case domsafety.OK:
		st.bucket = domretrieval.BucketOK
		st.features = s.deps.Extractor.Extract(d)
	case domsafety.NG:
		st.bucket = domretrieval.BucketNG
	default:
		st.bucket = domretrieval.BucketAmbiguous
	}
	return st
}

// score scores safe candidates, best first. Ties keep processing order.
func (s *Service) score(safe []candidateState, k intent.Kind, table *policy.Table) []ranking.Scored {
	out := make([]ranking.Scored, 0, len(safe))
	for i := range safe {
		st := &safe[i]
		p := table.Lookup(st.doc.URL())
		res := s.deps.Scorer.ScoreFeatures(st.doc, &st.verdict, st.features, k, p)
		_, boost := table.ApplyBoost(res.Final, st.doc.URL(), st.pass)
		out = append(out, ranking.Scored{
			Document:    st.doc,
			Verdict:     st.verdict,
			Features:    res.Features,
			Score:       res.Breakdown,
			Gate:        res.Gate,
			Chips:       scoring.Chips(res.Features, res.Breakdown, k),
			BoostReason: boost,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score.Total > out[j].Score.Total })
	return out
}

func (s *Service) observe(m domretrieval.Metrics) {
	for _, p := range []domretrieval.Phase{domretrieval.PhaseRetrieval, domretrieval.PhaseSafety, domretrieval.PhaseScoring} {
		metrics.PhaseDuration.WithLabelValues(string(p)).Observe(m.Timings.Of(p).Seconds())
	}
	for _, p := range m.Overruns {
		metrics.BudgetOverrunsTotal.WithLabelValues(string(p)).Inc()
		s.logger.Warn("Phase budget overrun",
			zap.String("phase", string(p)),
			zap.Duration("elapsed", m.Timings.Of(p)),
		)
	}
}

// emit reports the search fire-and-forget.
func (s *Service) emit(ctx context.Context, req Request, query string, resp Response) {
	if s.deps.Sink != nil {
		s.deps.Sink.Emit(ctx, telemetry.NewEvent(
			telemetry.KindSearchMetrics, req.AnonID, query, string(req.Context),
			req.Allergens.Strings(), newMetricsPayload(resp), s.now(),
		))
	}
	if s.deps.Stats == nil || len(resp.Results) == 0 {
		return
	}
	domains := make([]string, len(resp.Results))
	for i, r := range resp.Results {
		domains[i] = r.Domain
	}
	go func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsTimeout)
		defer cancel()
		if err := s.deps.Stats.RecordImpressions(sctx, domains); err != nil {
			s.logger.Warn("Failed to record impressions", zap.Error(err))
		}
	}()
}
