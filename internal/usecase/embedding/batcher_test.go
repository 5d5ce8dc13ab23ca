package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterRerankMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockEmbedder struct {
	vectors       map[string][]float32
	tokensPerText int
	short         bool
	err           error
	calls         int
	sizes         []int
	seen          []string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	m.sizes = append(m.sizes, len(texts))
	m.seen = append(m.seen, texts...)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{1}
		}
	}
	if m.short {
		out = out[:len(out)-1]
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: m.tokensPerText * len(texts),
		TotalTokens:  m.tokensPerText * len(texts),
	}, nil
}

type mockBudget struct {
	admitErr  error
	estimates []int64
	recorded  int64
}

func (m *mockBudget) Admit(_ context.Context, estimate int64) error {
	m.estimates = append(m.estimates, estimate)
	return m.admitErr
}

func (m *mockBudget) Record(_ context.Context, tokens int64) { m.recorded += tokens }

// --- Tests ---

func TestBatcher_Success(t *testing.T) {
	inner := &mockEmbedder{tokensPerText: 10}
	p := NewBatcher(inner, "test-model", nil, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 || res.TotalTokens != 30 {
		t.Fatalf("unexpected result %+v", res)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 batch call, got %d", inner.calls)
	}
}

func TestBatcher_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	budget := &mockBudget{}
	p := NewBatcher(inner, "test-model", budget, zap.NewNop())

	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Fatalf("expected empty result, got (%+v, %v)", res, err)
	}
	if inner.calls != 0 || len(budget.estimates) != 0 {
		t.Errorf("empty input must not reach the provider or the budget")
	}
}

func TestBatcher_DeduplicatesSyndicatedText(t *testing.T) {
	inner := &mockEmbedder{tokensPerText: 5, vectors: map[string][]float32{
		"米粉のパンケーキ": {1, 0},
		"豆乳プリン":    {0, 1},
	}}
	model := "test-model-dedup"
	p := NewBatcher(inner, model, nil, zap.NewNop())
	before := testutil.ToFloat64(metrics.RerankEmbedDedupedTotal.WithLabelValues(model))

	texts := []string{"米粉のパンケーキ", "豆乳プリン", "米粉のパンケーキ", "米粉のパンケーキ"}
	res, err := p.BatchEmbed(context.Background(), texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(inner.seen) != "[米粉のパンケーキ 豆乳プリン]" {
		t.Errorf("provider saw %v, want distinct texts only", inner.seen)
	}
	if len(res.Embeddings) != 4 {
		t.Fatalf("got %d embeddings, want one per input", len(res.Embeddings))
	}
	for i, want := range []string{"[1 0]", "[0 1]", "[1 0]", "[1 0]"} {
		if got := fmt.Sprint(res.Embeddings[i]); got != want {
			t.Errorf("embedding[%d] = %s, want %s", i, got, want)
		}
	}
	if res.TotalTokens != 10 {
		t.Errorf("total tokens = %d, want 10 for two distinct texts", res.TotalTokens)
	}
	if got := testutil.ToFloat64(metrics.RerankEmbedDedupedTotal.WithLabelValues(model)) - before; got != 2 {
		t.Errorf("deduped counter delta = %v, want 2", got)
	}
}

func TestBatcher_Chunks(t *testing.T) {
	inner := &mockEmbedder{tokensPerText: 1}
	p := NewBatcher(inner, "test-model", nil, zap.NewNop())
	p.maxBatch = 2

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 5 || res.TotalTokens != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
	if fmt.Sprint(inner.sizes) != "[2 2 1]" {
		t.Errorf("chunk sizes = %v, want [2 2 1]", inner.sizes)
	}
}

func TestBatcher_ShortChunk(t *testing.T) {
	inner := &mockEmbedder{short: true}
	p := NewBatcher(inner, "test-model", nil, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestBatcher_InnerError(t *testing.T) {
	inner := &mockEmbedder{err: domain.ErrEmbeddingProvider}
	budget := &mockBudget{}
	p := NewBatcher(inner, "test-model", budget, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
	if budget.recorded != 0 {
		t.Errorf("failed batch recorded %d tokens", budget.recorded)
	}
}

func TestBatcher_BudgetRefusal(t *testing.T) {
	inner := &mockEmbedder{}
	budget := &mockBudget{admitErr: domain.ErrEmbeddingBudgetExceeded}
	p := NewBatcher(inner, "test-model", budget, zap.NewNop())

	_, err := p.BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingBudgetExceeded) {
		t.Fatalf("expected ErrEmbeddingBudgetExceeded, got %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("provider must not be called for a refused batch")
	}
}

func TestBatcher_EstimatesDistinctTextsAndRecordsBilled(t *testing.T) {
	inner := &mockEmbedder{tokensPerText: 100}
	budget := &mockBudget{}
	p := NewBatcher(inner, "test-model", budget, zap.NewNop())

	if _, err := p.BatchEmbed(context.Background(), []string{"abcdefgh", "abcdefgh", "卵なし"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(budget.estimates) != "[5]" {
		t.Errorf("estimates = %v, want [5]", budget.estimates)
	}
	if budget.recorded != 200 {
		t.Errorf("recorded = %d, want 200 billed tokens", budget.recorded)
	}
}
