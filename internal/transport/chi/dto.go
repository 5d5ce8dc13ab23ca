package chi

import (
	"github.com/kailas-cloud/recipegate/internal/domain/allergen"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
	"github.com/kailas-cloud/recipegate/internal/domain/ranking"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
	"github.com/kailas-cloud/recipegate/internal/domain/telemetry"
	retrievaluc "github.com/kailas-cloud/recipegate/internal/usecase/retrieval"
	"github.com/kailas-cloud/recipegate/internal/usecase/scoring"
)

// ErrorCode is the machine-readable error class of an ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeUnauthorized        ErrorCode = "unauthorized"
	CodeNotFound            ErrorCode = "not_found"
	CodeProviderUnavailable ErrorCode = "provider_unavailable"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the POST /v1/search body.
type SearchRequest struct {
	Query     string   `json:"q"`
	Allergens []string `json:"allergens"`
	Context   string   `json:"context,omitempty"`
	Target    int      `json:"target,omitempty"`
}

// SearchResponse is the ranked list with request metrics.
type SearchResponse struct {
	Results []ResultItem  `json:"results"`
	Metrics SearchMetrics `json:"metrics"`
	Stats   RerankStats   `json:"stats"`
}

// ResultItem is one ranked recipe.
type ResultItem struct {
	URL           string         `json:"url"`
	Title         string         `json:"title"`
	Snippet       string         `json:"snippet,omitempty"`
	Domain        string         `json:"domain"`
	Score         ScoreBreakdown `json:"score"`
	Safety        SafetyVerdict  `json:"safety"`
	Chips         []ChipItem     `json:"chips"`
	Relevance     float64        `json:"relevance"`
	Novelty       float64        `json:"novelty"`
	DiversityRank int            `json:"diversityRank"`
	BoostReason   string         `json:"boostReason,omitempty"`
	GateReasons   []string       `json:"gateReasons,omitempty"`
	Completion    float64        `json:"featureCompletion"`
}

// ScoreBreakdown mirrors score.Breakdown.
type ScoreBreakdown struct {
	Total      float64 `json:"total"`
	Safety     float64 `json:"safety"`
	Trust      float64 `json:"trust"`
	Context    float64 `json:"context"`
	Popularity float64 `json:"popularity"`
}

// SafetyVerdict is the client view of a safety verdict. Hit snippets are
// not exposed.
type SafetyVerdict struct {
	Status           string   `json:"status"`
	CheckedAllergens []string `json:"checkedAllergens"`
	HitAllergens     []string `json:"hitAllergens"`
	ReasonCodes      []string `json:"reasonCodes"`
}

// ChipItem is one evidence chip.
type ChipItem struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
	Tone string `json:"tone"`
}

// SearchMetrics is the per-request observability record.
type SearchMetrics struct {
	Passes     []PassItem          `json:"passes"`
	Counts     domretrieval.Counts `json:"counts"`
	TimingsMs  map[string]int64    `json:"timingsMs"`
	Overruns   []string            `json:"overruns,omitempty"`
	Violations []string            `json:"violations,omitempty"`
}

// PassItem is one executed retrieval pass.
type PassItem struct {
	Pass        string `json:"pass"`
	ShapedQuery string `json:"shapedQuery,omitempty"`
	ResultCount int    `json:"resultCount"`
	ElapsedMs   int64  `json:"elapsedMs"`
	Err         string `json:"err,omitempty"`
}

// RerankStats are diversity statistics of the final list.
type RerankStats struct {
	UniqueDomains        int     `json:"uniqueDomains"`
	DomainDiversityRatio float64 `json:"domainDiversityRatio"`
	AvgTitleSimilarity   float64 `json:"avgTitleSimilarity"`
	Lambda               float64 `json:"lambda"`
}

// FeedbackRequest is the POST /v1/feedback body.
type FeedbackRequest struct {
	Value     string   `json:"value"`
	Reasons   []string `json:"reasons,omitempty"`
	Note      string   `json:"note,omitempty"`
	Query     string   `json:"query,omitempty"`
	Context   string   `json:"context,omitempty"`
	ResultIDs []string `json:"resultIds,omitempty"`
	AnonID    string   `json:"anonId,omitempty"`
}

// MismatchRequest is the POST /v1/reports/allergen-mismatch body.
type MismatchRequest struct {
	RecipeURL string   `json:"recipeUrl"`
	Context   string   `json:"context,omitempty"`
	Query     string   `json:"query,omitempty"`
	Allergens []string `json:"allergens"`
	AnonID    string   `json:"anonId,omitempty"`
}

// AcceptedResponse acknowledges a recorded event.
type AcceptedResponse struct {
	ID string `json:"id"`
}

// PolicyItem is one domain policy.
type PolicyItem struct {
	Domain string  `json:"domain"`
	Kind   string  `json:"kind"`
	Boost  float64 `json:"boost"`
	Reason string  `json:"reason,omitempty"`
}

// PolicyUpsertRequest is the PUT /v1/admin/policies/{domain} body.
type PolicyUpsertRequest struct {
	Kind   string  `json:"kind"`
	Boost  float64 `json:"boost"`
	Reason string  `json:"reason,omitempty"`
}

// PolicyStatsResponse are serving counters for one domain.
type PolicyStatsResponse struct {
	Domain      string  `json:"domain"`
	Policy      string  `json:"policy"`
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Violations  int64   `json:"violations"`
	CTR         float64 `json:"ctr"`
}

// LambdaFeedbackRequest is the POST /v1/admin/rerank/lambda body.
type LambdaFeedbackRequest struct {
	PrecisionAt3 float64 `json:"precisionAt3"`
	Violations   int     `json:"violations"`
}

// LambdaResponse reports a λ adjustment.
type LambdaResponse struct {
	Previous float64 `json:"previous"`
	Lambda   float64 `json:"lambda"`
	Reason   string  `json:"reason"`
}

// CandidateInput is a candidate record posted for median calibration.
type CandidateInput struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet,omitempty"`
	JSONLD    string `json:"jsonld,omitempty"`
	Microdata string `json:"microdata,omitempty"`
	HTML      string `json:"html,omitempty"`
}

// MedianCalibrationRequest is the POST /v1/admin/medians body.
type MedianCalibrationRequest struct {
	Candidates []CandidateInput `json:"candidates"`
}

// MedianTableResponse is the imputation table now in effect.
type MedianTableResponse struct {
	PrepMinutes          float64 `json:"prepMinutes"`
	IngredientCount      float64 `json:"ingredientCount"`
	StepCount            float64 `json:"stepCount"`
	CaloriesPerServing   float64 `json:"caloriesPerServing"`
	ProteinGrams         float64 `json:"proteinGrams"`
	AvgInstructionLength float64 `json:"avgInstructionLength"`
	VisualScore          float64 `json:"visualScore"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SearchResponseFromDomain converts a pipeline response to its wire shape.
func SearchResponseFromDomain(resp retrievaluc.Response) SearchResponse {
	items := make([]ResultItem, len(resp.Results))
	for i, r := range resp.Results {
		items[i] = resultToItem(r)
	}

	m := resp.Metrics
	out := SearchResponse{
		Results: items,
		Metrics: SearchMetrics{
			Passes: make([]PassItem, len(m.Passes)),
			Counts: m.Counts,
			TimingsMs: map[string]int64{
				string(domretrieval.PhaseRetrieval): m.Timings.Retrieval.Milliseconds(),
				string(domretrieval.PhaseSafety):    m.Timings.Safety.Milliseconds(),
				string(domretrieval.PhaseScoring):   m.Timings.Scoring.Milliseconds(),
			},
			Violations: m.Violations,
		},
		Stats: RerankStats{
			UniqueDomains:        resp.Stats.UniqueDomains,
			DomainDiversityRatio: resp.Stats.DomainDiversityRatio,
			AvgTitleSimilarity:   resp.Stats.AvgTitleSimilarity,
			Lambda:               resp.Stats.Lambda,
		},
	}
	for i, p := range m.Passes {
		out.Metrics.Passes[i] = PassItem{
			Pass:        string(p.Kind),
			ShapedQuery: p.ShapedQuery,
			ResultCount: p.ResultCount,
			ElapsedMs:   p.ElapsedMs(),
			Err:         p.Err,
		}
	}
	for _, o := range m.Overruns {
		out.Metrics.Overruns = append(out.Metrics.Overruns, string(o))
	}
	return out
}

func resultToItem(r ranking.Result) ResultItem {
	chips := make([]ChipItem, len(r.Chips))
	for i, c := range r.Chips {
		chips[i] = ChipItem{Text: c.Text, Kind: string(c.Kind), Tone: string(c.Tone)}
	}
	v := r.Verdict
	return ResultItem{
		URL:     r.Document.URL(),
		Title:   r.Document.Title(),
		Snippet: r.Document.Snippet(),
		Domain:  r.Domain,
		Score: ScoreBreakdown{
			Total:      r.Score.Total,
			Safety:     r.Score.Safety,
			Trust:      r.Score.Trust,
			Context:    r.Score.Context,
			Popularity: r.Score.Popularity,
		},
		Safety: SafetyVerdict{
			Status:           string(v.Status),
			CheckedAllergens: keyStrings(v.CheckedAllergens),
			HitAllergens:     keyStrings(v.HitAllergens),
			ReasonCodes:      nonNil(v.ReasonCodes),
		},
		Chips:         chips,
		Relevance:     r.Relevance,
		Novelty:       r.Novelty,
		DiversityRank: r.DiversityRank,
		BoostReason:   r.BoostReason,
		GateReasons:   r.Gate.Reasons,
		Completion:    r.Features.CompletionScore,
	}
}

func medianTableResponse(t scoring.MedianTable) MedianTableResponse {
	return MedianTableResponse{
		PrepMinutes:          t.PrepMinutes,
		IngredientCount:      t.IngredientCount,
		StepCount:            t.StepCount,
		CaloriesPerServing:   t.CaloriesPerServing,
		ProteinGrams:         t.ProteinGrams,
		AvgInstructionLength: t.AvgInstructionLength,
		VisualScore:          t.VisualScore,
	}
}

func candidatesFromInput(in []CandidateInput) []candidate.Document {
	docs := make([]candidate.Document, len(in))
	for i, c := range in {
		docs[i] = candidate.New(c.URL, c.Title, c.Snippet, candidate.Markup{
			JSONLD:    c.JSONLD,
			Microdata: c.Microdata,
			HTML:      c.HTML,
		})
	}
	return docs
}

func policyToItem(p dompolicy.Policy) PolicyItem {
	return PolicyItem{Domain: p.Domain, Kind: string(p.Kind), Boost: p.Boost, Reason: p.Reason}
}

func policiesByKind(groups map[dompolicy.Kind][]dompolicy.Policy) map[string][]PolicyItem {
	out := make(map[string][]PolicyItem, len(groups))
	for k, ps := range groups {
		items := make([]PolicyItem, len(ps))
		for i, p := range ps {
			items[i] = policyToItem(p)
		}
		out[string(k)] = items
	}
	return out
}

func feedbackFromRequest(req FeedbackRequest) telemetry.Feedback {
	return telemetry.Feedback{
		Value:     telemetry.FeedbackValue(req.Value),
		Reasons:   req.Reasons,
		Note:      req.Note,
		Query:     req.Query,
		Context:   req.Context,
		ResultIDs: req.ResultIDs,
		AnonID:    req.AnonID,
	}
}

func mismatchFromRequest(req MismatchRequest) telemetry.MismatchReport {
	return telemetry.MismatchReport{
		RecipeURL: req.RecipeURL,
		Context:   req.Context,
		Query:     req.Query,
		Allergens: req.Allergens,
		AnonID:    req.AnonID,
	}
}

func keyStrings(keys []allergen.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
