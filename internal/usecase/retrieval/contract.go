package retrieval

import (
	"context"

	"github.com/kailas-cloud/recipegate/internal/domain/allergen"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/intent"
	"github.com/kailas-cloud/recipegate/internal/domain/policy"
	"github.com/kailas-cloud/recipegate/internal/domain/ranking"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
	domsafety "github.com/kailas-cloud/recipegate/internal/domain/safety"
	"github.com/kailas-cloud/recipegate/internal/domain/telemetry"
	"github.com/kailas-cloud/recipegate/internal/usecase/rerank"
	"github.com/kailas-cloud/recipegate/internal/usecase/scoring"
)

// ExternalSearch runs one shaped query against the search provider.
// Failures are *domain.RetrievalError.
type ExternalSearch interface {
	Search(ctx context.Context, query string, params domretrieval.Params) ([]candidate.Document, error)
}

// TelemetrySink accepts events without blocking.
type TelemetrySink interface {
	Emit(ctx context.Context, e telemetry.Event)
}

// DomainStats counts impressions per domain.
type DomainStats interface {
	RecordImpressions(ctx context.Context, domains []string) error
}

// PolicySource serves the current domain policy snapshot.
type PolicySource interface {
	Snapshot() *policy.Table
}

// QueryShaper rewrites the user query per pass.
type QueryShaper interface {
	Shape(query string, pass domretrieval.PassKind) string
	PassParams(pass domretrieval.PassKind) domretrieval.Params
}

// SafetyGate classifies a document against the selected allergens.
type SafetyGate interface {
	Evaluate(doc candidate.Document, sel allergen.Selection) domsafety.Verdict
}

// Extractor produces context features.
type Extractor interface {
	Extract(doc candidate.Document) feature.Features
}

// Scorer scores extracted features. It only reads the imputation table;
// medians are recalibrated out of band so identical requests score alike.
type Scorer interface {
	ScoreFeatures(
		doc candidate.Document, verdict *domsafety.Verdict, f feature.Features, k intent.Kind, p policy.Policy,
	) scoring.Result
}

// Reranker orders the scored set.
type Reranker interface {
	Rerank(ctx context.Context, scored []ranking.Scored, target int) rerank.Output
}
