package chi

import (
	"context"
	"net/http"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
	"github.com/kailas-cloud/recipegate/internal/domain/telemetry"
	healthuc "github.com/kailas-cloud/recipegate/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/recipegate/internal/usecase/retrieval"
	"github.com/kailas-cloud/recipegate/internal/usecase/scoring"
)

// --- Mocks ---

type mockSearcher struct {
	got  retrievaluc.Request
	resp retrievaluc.Response
	err  error
}

func (m *mockSearcher) Search(_ context.Context, req retrievaluc.Request) (retrievaluc.Response, error) {
	m.got = req
	return m.resp, m.err
}

type mockPolicies struct {
	table   *dompolicy.Table
	stats   map[string]dompolicy.Stats
	saveErr error
}

func newMockPolicies() *mockPolicies {
	return &mockPolicies{table: dompolicy.DefaultTable(), stats: map[string]dompolicy.Stats{}}
}

func (m *mockPolicies) Lookup(d string) dompolicy.Policy { return m.table.Lookup(d) }

func (m *mockPolicies) ByKind() map[dompolicy.Kind][]dompolicy.Policy { return m.table.ByKind() }

func (m *mockPolicies) Upsert(_ context.Context, p dompolicy.Policy) (dompolicy.Policy, error) {
	if err := p.Validate(); err != nil {
		return dompolicy.Policy{}, err
	}
	if m.saveErr != nil {
		return dompolicy.Policy{}, m.saveErr
	}
	p.Domain = dompolicy.NormalizeDomain(p.Domain)
	m.table = m.table.With(p)
	return p, nil
}

func (m *mockPolicies) Remove(_ context.Context, d string) error {
	d = dompolicy.NormalizeDomain(d)
	if _, ok := m.table.Get(d); !ok {
		return domain.ErrPolicyNotFound
	}
	m.table = m.table.Without(d)
	return nil
}

func (m *mockPolicies) Stats(_ context.Context, d string) (dompolicy.Stats, error) {
	d = dompolicy.NormalizeDomain(d)
	st, ok := m.stats[d]
	if !ok {
		return dompolicy.Stats{Domain: d}, nil
	}
	return st, nil
}

type mockFeedback struct {
	feedback []telemetry.Feedback
	reports  []telemetry.MismatchReport
}

func (m *mockFeedback) Submit(_ context.Context, f telemetry.Feedback) (telemetry.Event, error) {
	if err := f.Validate(); err != nil {
		return telemetry.Event{}, err
	}
	m.feedback = append(m.feedback, f)
	return telemetry.Event{ID: "fb-1", Kind: telemetry.KindSessionFeedback}, nil
}

func (m *mockFeedback) ReportMismatch(_ context.Context, r telemetry.MismatchReport) (telemetry.Event, error) {
	if err := r.Validate(); err != nil {
		return telemetry.Event{}, err
	}
	m.reports = append(m.reports, r)
	return telemetry.Event{ID: "mm-1", Kind: telemetry.KindAllergenMismatch}, nil
}

type mockTuner struct {
	lambda float64
}

func (m *mockTuner) Lambda() float64 { return m.lambda }

func (m *mockTuner) Feedback(p3 float64, violations int) (float64, string) {
	if violations > 0 {
		m.lambda -= 0.05
		return m.lambda, "violations_detected"
	}
	if p3 < 0.6 {
		m.lambda += 0.05
		return m.lambda, "low_precision"
	}
	return m.lambda, "no_change"
}

type mockCalibrator struct {
	got []candidate.Document
}

func (m *mockCalibrator) Calibrate(docs []candidate.Document) scoring.MedianTable {
	m.got = docs
	t := scoring.DefaultMedianTable()
	t.PrepMinutes = 25
	return t
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type testEnv struct {
	search   *mockSearcher
	policies *mockPolicies
	feedback *mockFeedback
	tuner    *mockTuner
	health   *mockHealth
	medians  *mockCalibrator
	handler  http.Handler
}

func newTestEnv() *testEnv {
	env := &testEnv{
		search:   &mockSearcher{resp: retrievaluc.Response{}},
		policies: newMockPolicies(),
		feedback: &mockFeedback{},
		tuner:    &mockTuner{lambda: 0.7},
		medians:  &mockCalibrator{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}},
	}
	srv := NewServer(env.search, env.policies, env.feedback, env.tuner, env.health, nil).
		WithMedianCalibrator(env.medians)
	env.handler = Handler(srv)
	return env
}
