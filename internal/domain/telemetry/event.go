// Package telemetry defines events emitted to the telemetry sink.
package telemetry

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/recipegate/internal/domain"
)

// Kind classifies a telemetry event.
type Kind string

// Event kinds.
const (
	KindSearchMetrics    Kind = "search_metrics"
	KindSessionFeedback  Kind = "session_feedback"
	KindAllergenMismatch Kind = "allergen_mismatch"
)

// Event is one append-only telemetry record.
type Event struct {
	ID        string
	Kind      Kind
	AnonID    string
	Query     string
	Context   string
	Allergens []string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// NewEvent creates an event with a fresh id. payload is JSON-encoded;
// encoding failures leave the payload empty.
func NewEvent(kind Kind, anonID, query, ctxName string, allergens []string, payload any, now time.Time) Event {
	var raw json.RawMessage
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = b
		}
	}
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		AnonID:    anonID,
		Query:     query,
		Context:   ctxName,
		Allergens: allergens,
		Payload:   raw,
		CreatedAt: now.UTC(),
	}
}

// FeedbackValue is the user's overall verdict on a result page.
type FeedbackValue string

// Feedback values.
const (
	FeedbackIdealMatch       FeedbackValue = "ideal_match"
	FeedbackNotFound         FeedbackValue = "not_found"
	FeedbackAllergenIncluded FeedbackValue = "allergen_included"
)

// Limits on free-text feedback fields.
const (
	maxNoteRunes = 1000
	maxReasons   = 10
	maxResultIDs = 50
)

// Feedback is a session-level rating of a result page.
type Feedback struct {
	Value     FeedbackValue
	Reasons   []string
	Note      string
	Query     string
	Context   string
	ResultIDs []string
	AnonID    string
}

// Validate checks the payload shape.
func (f Feedback) Validate() error {
	switch f.Value {
	case FeedbackIdealMatch, FeedbackNotFound, FeedbackAllergenIncluded:
	default:
		return fmt.Errorf("%w: unknown value %q", domain.ErrInvalidFeedback, f.Value)
	}
	if len([]rune(f.Note)) > maxNoteRunes {
		return fmt.Errorf("%w: note exceeds %d characters", domain.ErrInvalidFeedback, maxNoteRunes)
	}
	if len(f.Reasons) > maxReasons || len(f.ResultIDs) > maxResultIDs {
		return fmt.Errorf("%w: too many reasons or result ids", domain.ErrInvalidFeedback)
	}
	return nil
}

// MismatchReport flags a surfaced recipe that contained a declared allergen.
type MismatchReport struct {
	RecipeURL string
	Context   string
	Query     string
	Allergens []string
	AnonID    string
}

// Validate checks the report shape.
func (r MismatchReport) Validate() error {
	u := strings.TrimSpace(r.RecipeURL)
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return fmt.Errorf("%w: recipe url must be absolute http(s)", domain.ErrInvalidFeedback)
	}
	if len(r.Allergens) == 0 {
		return fmt.Errorf("%w: at least one allergen is required", domain.ErrInvalidFeedback)
	}
	return nil
}
