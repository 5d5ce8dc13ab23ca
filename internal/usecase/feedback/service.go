// Package feedback ingests session feedback and allergen mismatch reports.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/telemetry"
)

// Counters are the per-domain stores feedback writes to.
type Counters interface {
	ViolationRecorder
	ClickRecorder
}

// Service validates feedback and forwards it to telemetry.
type Service struct {
	sink     Sink
	counters Counters
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Service. counters can be nil.
func New(sink Sink, counters Counters, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sink: sink, counters: counters, logger: logger, now: time.Now}
}

// Submit records a session feedback. Ideal matches count as clicks for the
// domains of the rated results.
func (s *Service) Submit(ctx context.Context, f telemetry.Feedback) (telemetry.Event, error) {
	if err := f.Validate(); err != nil {
		return telemetry.Event{}, err
	}
	e := telemetry.NewEvent(telemetry.KindSessionFeedback, f.AnonID, f.Query, f.Context, nil, feedbackPayload{
		Value:     f.Value,
		Reasons:   f.Reasons,
		Note:      strings.TrimSpace(f.Note),
		ResultIDs: f.ResultIDs,
	}, s.now())
	s.sink.Emit(ctx, e)

	if s.counters != nil && f.Value == telemetry.FeedbackIdealMatch && len(f.ResultIDs) > 0 {
		if err := s.counters.RecordClicks(ctx, domainsOf(f.ResultIDs)); err != nil {
			s.logger.Warn("Failed to record clicks", zap.Error(err))
		}
	}
	return e, nil
}

// ReportMismatch records a surfaced recipe that contained a declared
// allergen and counts a violation against its domain.
func (s *Service) ReportMismatch(ctx context.Context, r telemetry.MismatchReport) (telemetry.Event, error) {
	if err := r.Validate(); err != nil {
		return telemetry.Event{}, err
	}
	d := candidate.DomainOf(r.RecipeURL)
	e := telemetry.NewEvent(telemetry.KindAllergenMismatch, r.AnonID, r.Query, r.Context, r.Allergens,
		mismatchPayload{RecipeURL: strings.TrimSpace(r.RecipeURL), Domain: d}, s.now())
	s.sink.Emit(ctx, e)

	s.logger.Warn("Allergen mismatch reported",
		zap.String("domain", d),
		zap.Strings("allergens", r.Allergens),
	)
	if s.counters != nil && d != "" {
		if err := s.counters.RecordViolation(ctx, d); err != nil {
			return e, fmt.Errorf("record violation: %w", err)
		}
	}
	return e, nil
}

type feedbackPayload struct {
	Value     telemetry.FeedbackValue `json:"value"`
	Reasons   []string                `json:"reasons,omitempty"`
	Note      string                  `json:"note,omitempty"`
	ResultIDs []string                `json:"resultIds,omitempty"`
}

type mismatchPayload struct {
	RecipeURL string `json:"recipeUrl"`
	Domain    string `json:"domain"`
}

// domainsOf maps result ids (result URLs) to unique domains.
func domainsOf(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		d := candidate.DomainOf(id)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
