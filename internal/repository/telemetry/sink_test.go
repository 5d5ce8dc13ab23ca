package telemetry

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	domtelemetry "github.com/kailas-cloud/recipegate/internal/domain/telemetry"
)

func openTemp(t *testing.T, dropped prometheus.Counter) (*Sink, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.db")
	s, err := Open(path, 16, dropped, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func event(kind domtelemetry.Kind, query string, at time.Time) domtelemetry.Event {
	return domtelemetry.NewEvent(kind, "anon-1", query, "quick", []string{"egg", "milk"},
		map[string]int{"results": 3}, at)
}

func TestClose_DrainsQueue(t *testing.T) {
	s, path := openTemp(t, nil)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Emit(context.Background(), event(domtelemetry.KindSearchMetrics, "q", base.Add(time.Duration(i)*time.Second)))
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, 0, nil, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Recent(context.Background(), "", 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 persisted events after Close, got %d", len(got))
	}
	if !got[0].CreatedAt.Equal(base.Add(4 * time.Second)) {
		t.Errorf("expected newest first, got %v", got[0].CreatedAt)
	}
}

func TestRecent_FiltersKindAndRestoresFields(t *testing.T) {
	s, path := openTemp(t, nil)
	at := time.Date(2026, 2, 3, 4, 5, 6, 500, time.UTC)
	fb := event(domtelemetry.KindSessionFeedback, "パンケーキ", at)
	s.Emit(context.Background(), event(domtelemetry.KindSearchMetrics, "q", at))
	s.Emit(context.Background(), fb)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path, 0, nil, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = r.Close() }()

	got, err := r.Recent(context.Background(), domtelemetry.KindSessionFeedback, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 feedback event, got %d", len(got))
	}
	e := got[0]
	if e.ID != fb.ID || e.Query != "パンケーキ" || e.AnonID != "anon-1" || e.Context != "quick" {
		t.Errorf("unexpected event: %+v", e)
	}
	if len(e.Allergens) != 2 || e.Allergens[0] != "egg" {
		t.Errorf("allergens = %v", e.Allergens)
	}
	var payload map[string]int
	if err := json.Unmarshal(e.Payload, &payload); err != nil || payload["results"] != 3 {
		t.Errorf("payload = %s (%v)", e.Payload, err)
	}
	if !e.CreatedAt.Equal(at) {
		t.Errorf("created_at = %v, want %v", e.CreatedAt, at)
	}
}

func TestEmit_AfterCloseIsDroppedAndCounted(t *testing.T) {
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_telemetry_dropped_total"})
	s, _ := openTemp(t, dropped)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close must be a no-op: %v", err)
	}

	s.Emit(context.Background(), event(domtelemetry.KindAllergenMismatch, "q", time.Now()))

	if v := testutil.ToFloat64(dropped); v != 1 {
		t.Fatalf("dropped = %f, want 1", v)
	}
}

func TestHealthCheck(t *testing.T) {
	s, err := Open(":memory:", 4, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}
