package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/policy"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
	"github.com/kailas-cloud/recipegate/internal/domain/telemetry"
	"github.com/kailas-cloud/recipegate/internal/usecase/extract"
	"github.com/kailas-cloud/recipegate/internal/usecase/rerank"
	"github.com/kailas-cloud/recipegate/internal/usecase/safety"
	"github.com/kailas-cloud/recipegate/internal/usecase/scoring"
)

// --- Mocks ---

// passShaper shapes every query to its pass name so fakes can script per pass.
type passShaper struct{}

func (passShaper) Shape(_ string, pass domretrieval.PassKind) string { return string(pass) }

func (passShaper) PassParams(domretrieval.PassKind) domretrieval.Params {
	return domretrieval.Params{Lang: "lang_ja", Num: 10}
}

type step struct {
	docs []candidate.Document
	err  error
}

// fakeSearch replays scripted steps per pass; the last step repeats.
type fakeSearch struct {
	mu     sync.Mutex
	script map[domretrieval.PassKind][]step
	calls  []domretrieval.PassKind
	after  func(pass domretrieval.PassKind)
}

func newFakeSearch() *fakeSearch {
	return &fakeSearch{script: make(map[domretrieval.PassKind][]step)}
}

func (f *fakeSearch) on(pass domretrieval.PassKind, steps ...step) *fakeSearch {
	f.script[pass] = steps
	return f
}

func (f *fakeSearch) Search(_ context.Context, query string, _ domretrieval.Params) ([]candidate.Document, error) {
	pass := domretrieval.PassKind(query)
	f.mu.Lock()
	n := 0
	for _, c := range f.calls {
		if c == pass {
			n++
		}
	}
	f.calls = append(f.calls, pass)
	steps := f.script[pass]
	f.mu.Unlock()

	var st step
	if len(steps) > 0 {
		st = steps[min(n, len(steps)-1)]
	}
	if f.after != nil {
		f.after(pass)
	}
	return st.docs, st.err
}

func (f *fakeSearch) callCount(pass domretrieval.PassKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == pass {
			n++
		}
	}
	return n
}

type recordingSink struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (s *recordingSink) Emit(_ context.Context, e telemetry.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

type mockDomainStats struct {
	got chan []string
}

func (m *mockDomainStats) RecordImpressions(_ context.Context, domains []string) error {
	m.got <- domains
	return nil
}

type staticPolicies struct{ t *policy.Table }

func (s staticPolicies) Snapshot() *policy.Table { return s.t }

type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

// --- Fixtures ---

type testEnv struct {
	svc    *Service
	search *fakeSearch
	sink   *recordingSink
	sleeps *recordingSleep
}

func newTestEnv(search *fakeSearch, tweak ...func(*Options)) *testEnv {
	opts := DefaultOptions()
	opts.Workers = 4
	for _, fn := range tweak {
		fn(&opts)
	}
	ext := extract.New()
	sink := &recordingSink{}
	svc := New(Deps{
		Search:    search,
		Shaper:    passShaper{},
		Policies:  staticPolicies{t: policy.DefaultTable()},
		Safety:    safety.NewGate(),
		Extractor: ext,
		Scorer: scoring.NewScorer(ext, scoring.NewGate(scoring.DefaultGateThresholds()),
			scoring.NewMedians(scoring.DefaultMedianTable())),
		Reranker: rerank.New(nil, rerank.DefaultLambda, nil),
		Sink:     sink,
	}, opts, nil)
	sleeps := &recordingSleep{}
	svc.sleep = sleeps.sleep
	return &testEnv{svc: svc, search: search, sink: sink, sleeps: sleeps}
}

var cleanDishes = []string{
	"10分でできるバナナパンケーキ", "オートミールのパンケーキ", "豆腐入りもちもちパンケーキ",
	"さつまいもパンケーキ", "抹茶のパンケーキ", "かぼちゃパンケーキ", "りんごのせパンケーキ",
	"ココアパンケーキ", "ほうれん草のパンケーキ", "にんじんパンケーキ",
}

// cleanDoc is an allergen-free quick recipe on one of six domains.
func cleanDoc(i int) candidate.Document {
	return candidate.New(
		fmt.Sprintf("https://kitchen%d.example/recipe/%d", i%6, i),
		cleanDishes[i%len(cleanDishes)]+" レシピ",
		"材料 4人分。混ぜて焼くだけ、15分で完成。",
		candidate.Markup{},
	)
}

var filler = strings.Repeat("ふわふわに焼き上げます。", 5)

// butterDoc claims egg/milk/wheat-free but uses butter far from the claim.
func butterDoc(i int) candidate.Document {
	return candidate.New(
		fmt.Sprintf("https://butter%d.example/recipe/%d", i, i),
		fmt.Sprintf("卵・乳・小麦不使用のパンケーキ レシピ %c", 'A'+i),
		"卵・乳・小麦不使用。"+filler+"仕上げにバター 10gをのせて焼く。",
		candidate.Markup{},
	)
}

func cleanDocs(n int) []candidate.Document {
	out := make([]candidate.Document, n)
	for i := range out {
		out[i] = cleanDoc(i)
	}
	return out
}
