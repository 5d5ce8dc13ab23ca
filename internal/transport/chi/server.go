package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/domain/allergen"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/intent"
	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
	"github.com/kailas-cloud/recipegate/internal/domain/telemetry"
	healthuc "github.com/kailas-cloud/recipegate/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/recipegate/internal/usecase/retrieval"
	"github.com/kailas-cloud/recipegate/internal/usecase/scoring"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Calibration samples are larger than other admin bodies.
const (
	maxCalibrationBodyBytes  = 4 << 20
	maxCalibrationCandidates = 500
)

// Searcher runs the recipe pipeline.
type Searcher interface {
	Search(ctx context.Context, req retrievaluc.Request) (retrievaluc.Response, error)
}

// PolicyAdmin serves and edits the domain policy table.
type PolicyAdmin interface {
	Lookup(domainOrURL string) dompolicy.Policy
	ByKind() map[dompolicy.Kind][]dompolicy.Policy
	Upsert(ctx context.Context, p dompolicy.Policy) (dompolicy.Policy, error)
	Remove(ctx context.Context, d string) error
	Stats(ctx context.Context, d string) (dompolicy.Stats, error)
}

// FeedbackRecorder accepts user feedback.
type FeedbackRecorder interface {
	Submit(ctx context.Context, f telemetry.Feedback) (telemetry.Event, error)
	ReportMismatch(ctx context.Context, r telemetry.MismatchReport) (telemetry.Event, error)
}

// LambdaTuner adjusts the MMR trade-off.
type LambdaTuner interface {
	Lambda() float64
	Feedback(precisionAt3 float64, violations int) (float64, string)
}

// MedianCalibrator refreshes the scoring imputation table from a sample.
type MedianCalibrator interface {
	Calibrate(docs []candidate.Document) scoring.MedianTable
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface.
type Server struct {
	search        Searcher
	policies      PolicyAdmin
	feedback      FeedbackRecorder
	lambda        LambdaTuner
	health        HealthChecker
	medians       MedianCalibrator
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	policies PolicyAdmin,
	feedback FeedbackRecorder,
	lambda LambdaTuner,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search:   search,
		policies: policies,
		feedback: feedback,
		lambda:   lambda,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnknownAllergen, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnknownContext, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidPolicy, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidFeedback, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrPolicyNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrMissingCredentials, http.StatusServiceUnavailable, CodeProviderUnavailable),
	}
	return s
}

// WithMedianCalibrator enables POST /v1/admin/medians.
func (s *Server) WithMedianCalibrator(m MedianCalibrator) *Server {
	s.medians = m
	return s
}

// SearchRecipes handles GET /v1/search.
func (s *Server) SearchRecipes(w http.ResponseWriter, r *http.Request, params SearchParams) {
	req := SearchRequest{Query: params.Q}
	if params.Allergens != nil {
		req.Allergens = splitList(*params.Allergens)
	}
	if params.Context != nil {
		req.Context = *params.Context
	}
	if params.Target != nil {
		req.Target = *params.Target
	}
	anonID := ""
	if params.XAnonID != nil {
		anonID = *params.XAnonID
	}
	s.runSearch(w, r, req, anonID)
}

// SearchRecipesJSON handles POST /v1/search.
func (s *Server) SearchRecipesJSON(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.runSearch(w, r, req, r.Header.Get("X-Anon-Id"))
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, req SearchRequest, anonID string) {
	ucReq, err := searchRequestToDomain(req, anonID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.search.Search(r.Context(), ucReq)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponseFromDomain(resp))
}

// SubmitFeedback handles POST /v1/feedback.
func (s *Server) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ev, err := s.feedback.Submit(r.Context(), feedbackFromRequest(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, AcceptedResponse{ID: ev.ID})
}

// ReportAllergenMismatch handles POST /v1/reports/allergen-mismatch.
func (s *Server) ReportAllergenMismatch(w http.ResponseWriter, r *http.Request) {
	var req MismatchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ev, err := s.feedback.ReportMismatch(r.Context(), mismatchFromRequest(req))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, AcceptedResponse{ID: ev.ID})
}

// ListPolicies handles GET /v1/admin/policies.
func (s *Server) ListPolicies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, policiesByKind(s.policies.ByKind()))
}

// UpsertPolicy handles PUT /v1/admin/policies/{domain}.
func (s *Server) UpsertPolicy(w http.ResponseWriter, r *http.Request, d string) {
	var req PolicyUpsertRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.policies.Upsert(r.Context(), dompolicy.Policy{
		Domain: d,
		Kind:   dompolicy.Kind(req.Kind),
		Boost:  req.Boost,
		Reason: req.Reason,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, policyToItem(p))
}

// DeletePolicy handles DELETE /v1/admin/policies/{domain}.
func (s *Server) DeletePolicy(w http.ResponseWriter, r *http.Request, d string) {
	if err := s.policies.Remove(r.Context(), d); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPolicyStats handles GET /v1/admin/policies/{domain}/stats.
func (s *Server) GetPolicyStats(w http.ResponseWriter, r *http.Request, d string) {
	st, err := s.policies.Stats(r.Context(), d)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PolicyStatsResponse{
		Domain:      st.Domain,
		Policy:      string(s.policies.Lookup(st.Domain).Kind),
		Impressions: st.Impressions,
		Clicks:      st.Clicks,
		Violations:  st.Violations,
		CTR:         st.CTR(),
	})
}

// AdjustLambda handles POST /v1/admin/rerank/lambda.
func (s *Server) AdjustLambda(w http.ResponseWriter, r *http.Request) {
	var req LambdaFeedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if math.IsNaN(req.PrecisionAt3) || req.PrecisionAt3 < 0 || req.PrecisionAt3 > 1 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "precisionAt3 must be in [0, 1]")
		return
	}
	if req.Violations < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "violations must be non-negative")
		return
	}

	prev := s.lambda.Lambda()
	next, reason := s.lambda.Feedback(req.PrecisionAt3, req.Violations)
	writeJSON(w, http.StatusOK, LambdaResponse{Previous: prev, Lambda: next, Reason: reason})
}

// CalibrateMedians handles POST /v1/admin/medians.
func (s *Server) CalibrateMedians(w http.ResponseWriter, r *http.Request) {
	if s.medians == nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "median calibration is not enabled")
		return
	}
	var req MedianCalibrationRequest
	if !decodeBodyLimit(w, r, &req, maxCalibrationBodyBytes) {
		return
	}
	if n := len(req.Candidates); n == 0 || n > maxCalibrationCandidates {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("candidates must hold 1 to %d entries", maxCalibrationCandidates))
		return
	}

	table := s.medians.Calibrate(candidatesFromInput(req.Candidates))
	s.logger.Info("Scoring medians recalibrated", zap.Int("samples", len(req.Candidates)))
	writeJSON(w, http.StatusOK, medianTableResponse(table))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func searchRequestToDomain(req SearchRequest, anonID string) (retrievaluc.Request, error) {
	if strings.TrimSpace(req.Query) == "" {
		return retrievaluc.Request{}, fmt.Errorf("%w: q is required", domain.ErrInvalidQuery)
	}
	if req.Target < 0 {
		return retrievaluc.Request{}, fmt.Errorf("%w: target must be positive", domain.ErrInvalidQuery)
	}
	sel, err := allergen.NewSelection(req.Allergens)
	if err != nil {
		return retrievaluc.Request{}, fmt.Errorf("parse allergens: %w", err)
	}
	k, err := intent.Parse(req.Context)
	if err != nil {
		return retrievaluc.Request{}, fmt.Errorf("parse context: %w", err)
	}
	return retrievaluc.Request{
		Query:     req.Query,
		Allergens: sel,
		Context:   k,
		Target:    req.Target,
		AnonID:    anonID,
	}, nil
}

// splitList accepts both repeated and comma-separated list values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBodyLimit(w, r, v, maxBodyBytes)
}

func decodeBodyLimit(w http.ResponseWriter, r *http.Request, v any, limit int64) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrUnknownAllergen,
		domain.ErrUnknownContext,
		domain.ErrInvalidPolicy,
		domain.ErrPolicyNotFound,
		domain.ErrInvalidFeedback,
		domain.ErrMissingCredentials,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
