package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	PassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Name:      "passes_total",
			Help:      "Retrieval passes executed",
		},
		[]string{"pass", "outcome"}, // outcome: "ok" / reason code
	)

	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Name:      "candidates_total",
			Help:      "Processed candidates by bucket",
		},
		[]string{"bucket"},
	)

	PhaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recipegate",
			Name:      "phase_duration_seconds",
			Help:      "Pipeline phase duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"phase"},
	)

	BudgetOverrunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Name:      "budget_overruns_total",
			Help:      "Pipeline phases that exceeded their budget",
		},
		[]string{"phase"},
	)

	RetrievalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Name:      "retrieval_errors_total",
			Help:      "External search failures per attempt",
		},
		[]string{"kind"},
	)

	RerankViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Name:      "rerank_violations_total",
			Help:      "Candidates dropped by the diversity post-filter",
		},
		[]string{"kind"}, // "domain_limit" / "duplicate_title"
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Name:      "search_cache_total",
			Help:      "Search result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)

	SimilarityFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Name:      "similarity_fallback_total",
			Help:      "Reranks that fell back to TF-IDF similarity",
		},
	)

	TelemetryDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Name:      "telemetry_dropped_total",
			Help:      "Telemetry events dropped on a full buffer",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PassesTotal)
	prometheus.MustRegister(CandidatesTotal)
	prometheus.MustRegister(PhaseDuration)
	prometheus.MustRegister(BudgetOverrunsTotal)
	prometheus.MustRegister(RetrievalErrorsTotal)
	prometheus.MustRegister(RerankViolationsTotal)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(SimilarityFallbackTotal)
	prometheus.MustRegister(TelemetryDroppedTotal)
	pipelineMetricsRegistered = true
}
