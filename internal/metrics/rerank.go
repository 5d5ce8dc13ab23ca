package metrics

import "github.com/prometheus/client_golang/prometheus"

// Rerank embedding similarity metrics.
var (
	RerankEmbedRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Subsystem: "rerank",
			Name:      "embed_requests_total",
			Help:      "Embedding provider requests issued for rerank similarity",
		},
		[]string{"model", "status"},
	)

	RerankEmbedDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recipegate",
			Subsystem: "rerank",
			Name:      "embed_duration_seconds",
			Help:      "Embedding provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"model"},
	)

	RerankEmbedTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Subsystem: "rerank",
			Name:      "embed_tokens_total",
			Help:      "Tokens billed for rerank embeddings",
		},
		[]string{"model", "type"},
	)

	RerankEmbedErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Subsystem: "rerank",
			Name:      "embed_errors_total",
			Help:      "Embedding provider failures during rerank",
		},
		[]string{"model", "error_type"},
	)

	RerankEmbedTexts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recipegate",
			Subsystem: "rerank",
			Name:      "embed_texts",
			Help:      "Distinct candidate texts embedded per rerank",
			Buckets:   []float64{1, 5, 10, 20, 30, 50, 100},
		},
		[]string{"model"},
	)

	RerankEmbedDedupedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Subsystem: "rerank",
			Name:      "embed_deduped_total",
			Help:      "Candidate texts served from another candidate's embedding",
		},
		[]string{"model"},
	)

	RerankBudgetRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "recipegate",
			Subsystem: "rerank",
			Name:      "token_budget_remaining",
			Help:      "Tokens left in the rerank embedding budget window (-1 = unlimited)",
		},
		[]string{"model", "period"},
	)

	RerankBudgetRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recipegate",
			Subsystem: "rerank",
			Name:      "token_budget_rejections_total",
			Help:      "Rerank batches refused by the token budget",
		},
		[]string{"model", "period"},
	)
)

var rerankMetricsRegistered bool

// RegisterRerankMetrics registers rerank embedding metrics. Must be called once from main.
func RegisterRerankMetrics() {
	if rerankMetricsRegistered {
		return
	}
	prometheus.MustRegister(RerankEmbedRequestsTotal)
	prometheus.MustRegister(RerankEmbedDuration)
	prometheus.MustRegister(RerankEmbedTokensTotal)
	prometheus.MustRegister(RerankEmbedErrorsTotal)
	prometheus.MustRegister(RerankEmbedTexts)
	prometheus.MustRegister(RerankEmbedDedupedTotal)
	prometheus.MustRegister(RerankBudgetRemaining)
	prometheus.MustRegister(RerankBudgetRejectionsTotal)
	rerankMetricsRegistered = true
}
