package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/domain/telemetry"
)

// --- Mocks ---

type mockSink struct {
	events []telemetry.Event
}

func (m *mockSink) Emit(_ context.Context, e telemetry.Event) { m.events = append(m.events, e) }

type mockCounters struct {
	violations []string
	clicks     []string
	err        error
}

func (m *mockCounters) RecordViolation(_ context.Context, d string) error {
	m.violations = append(m.violations, d)
	return m.err
}

func (m *mockCounters) RecordClicks(_ context.Context, domains []string) error {
	m.clicks = append(m.clicks, domains...)
	return m.err
}

// --- Tests ---

func TestSubmit_IdealMatchRecordsClicks(t *testing.T) {
	sink := &mockSink{}
	counters := &mockCounters{}
	svc := New(sink, counters, nil)

	e, err := svc.Submit(context.Background(), telemetry.Feedback{
		Value:     telemetry.FeedbackIdealMatch,
		Note:      "  完璧  ",
		Query:     "パンケーキ",
		Context:   "quick",
		ResultIDs: []string{"https://www.cookpad.com/recipe/1", "https://cookpad.com/recipe/2", "https://kurashiru.com/r/3"},
		AnonID:    "anon",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.events) != 1 || e.Kind != telemetry.KindSessionFeedback {
		t.Fatalf("unexpected events %+v", sink.events)
	}
	var p feedbackPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Note != "完璧" || p.Value != telemetry.FeedbackIdealMatch {
		t.Errorf("unexpected payload %+v", p)
	}
	if strings.Join(counters.clicks, ",") != "cookpad.com,kurashiru.com" {
		t.Errorf("clicks = %v", counters.clicks)
	}
}

func TestSubmit_NotFoundRecordsNoClicks(t *testing.T) {
	counters := &mockCounters{}
	svc := New(&mockSink{}, counters, nil)
	_, err := svc.Submit(context.Background(), telemetry.Feedback{
		Value: telemetry.FeedbackNotFound, ResultIDs: []string{"https://a.example/r"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(counters.clicks) != 0 {
		t.Errorf("unexpected clicks %v", counters.clicks)
	}
}

func TestSubmit_Invalid(t *testing.T) {
	sink := &mockSink{}
	svc := New(sink, nil, nil)
	_, err := svc.Submit(context.Background(), telemetry.Feedback{Value: "meh"})
	if !errors.Is(err, domain.ErrInvalidFeedback) {
		t.Fatalf("expected ErrInvalidFeedback, got %v", err)
	}
	if len(sink.events) != 0 {
		t.Error("invalid feedback must not be emitted")
	}
}

func TestReportMismatch(t *testing.T) {
	sink := &mockSink{}
	counters := &mockCounters{}
	svc := New(sink, counters, nil)

	e, err := svc.ReportMismatch(context.Background(), telemetry.MismatchReport{
		RecipeURL: "https://www.example.com/recipe/9",
		Allergens: []string{"milk"},
		Query:     "パンケーキ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Kind != telemetry.KindAllergenMismatch || len(e.Allergens) != 1 {
		t.Errorf("unexpected event %+v", e)
	}
	if len(counters.violations) != 1 || counters.violations[0] != "example.com" {
		t.Errorf("violations = %v", counters.violations)
	}
}

func TestReportMismatch_Invalid(t *testing.T) {
	svc := New(&mockSink{}, nil, nil)
	for _, r := range []telemetry.MismatchReport{
		{RecipeURL: "ftp://x", Allergens: []string{"egg"}},
		{RecipeURL: "https://example.com/r"},
	} {
		if _, err := svc.ReportMismatch(context.Background(), r); !errors.Is(err, domain.ErrInvalidFeedback) {
			t.Errorf("%+v: expected ErrInvalidFeedback, got %v", r, err)
		}
	}
}

func TestReportMismatch_CounterError(t *testing.T) {
	sink := &mockSink{}
	svc := New(sink, &mockCounters{err: errors.New("redis down")}, nil)
	_, err := svc.ReportMismatch(context.Background(), telemetry.MismatchReport{
		RecipeURL: "https://example.com/r", Allergens: []string{"egg"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(sink.events) != 1 {
		t.Error("event must be emitted before the counter write")
	}
}
