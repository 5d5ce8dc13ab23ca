package searchcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
)

var testParams = domretrieval.Params{Lang: "lang_ja", Num: 10}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_search_cache_total"}, []string{"result"})
}

func testDocs() []candidate.Document {
	return []candidate.Document{
		candidate.New("https://a.example/recipe/1", "米粉パンケーキ", "卵不使用", candidate.Markup{
			JSONLD: `{"@type":"Recipe"}`,
		}),
		candidate.New("https://b.example/recipe/2", "豆乳ホットケーキ", "", candidate.Markup{}),
	}
}

func TestSearch_MissThenHit(t *testing.T) {
	inner := &mockSearcher{docs: testDocs()}
	ms := newMockKVStore()
	counter := newCounter()
	c := New(inner, ms, "recipegate:", time.Hour, counter, nil)
	ctx := context.Background()

	first, err := c.Search(ctx, "パンケーキ レシピ", testParams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Search(ctx, "パンケーキ レシピ", testParams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", inner.calls)
	}
	if len(second) != len(first) {
		t.Fatalf("cached length %d != %d", len(second), len(first))
	}
	for i := range first {
		if second[i].Key() != first[i].Key() || second[i].Title() != first[i].Title() ||
			second[i].Markup() != first[i].Markup() {
			t.Errorf("doc %d differs after cache: %+v vs %+v", i, second[i], first[i])
		}
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
		t.Errorf("miss = %f, want 1", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
		t.Errorf("hit = %f, want 1", v)
	}
	for _, ttl := range ms.ttls {
		if ttl != time.Hour {
			t.Errorf("ttl = %v, want 1h", ttl)
		}
	}
}

func TestSearch_KeyIncludesParams(t *testing.T) {
	inner := &mockSearcher{docs: testDocs()}
	c := New(inner, newMockKVStore(), "recipegate:", time.Hour, nil, nil)
	ctx := context.Background()

	_, _ = c.Search(ctx, "q", testParams)
	_, _ = c.Search(ctx, "q", domretrieval.Params{Lang: "", Num: 10})

	if inner.calls != 2 {
		t.Fatalf("different params must not share a cache entry, calls=%d", inner.calls)
	}
}

func TestSearch_ErrorNotCached(t *testing.T) {
	inner := &mockSearcher{err: domain.NewRetrievalError(domain.RetrievalRateLimited, 429, nil)}
	ms := newMockKVStore()
	c := New(inner, ms, "recipegate:", time.Hour, nil, nil)

	_, err := c.Search(context.Background(), "q", testParams)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected provider error to pass through, got %v", err)
	}
	if len(ms.data) != 0 {
		t.Fatal("failed search must not be cached")
	}
}

func TestSearch_StoreErrorsAreBestEffort(t *testing.T) {
	inner := &mockSearcher{docs: testDocs()}
	ms := newMockKVStore()
	ms.getErr = errors.New("conn refused")
	ms.setErr = errors.New("conn refused")
	c := New(inner, ms, "recipegate:", time.Hour, nil, nil)

	docs, err := c.Search(context.Background(), "q", testParams)
	if err != nil {
		t.Fatalf("store errors must not fail the search: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
}

func TestSearch_CorruptEntryFallsThrough(t *testing.T) {
	inner := &mockSearcher{docs: testDocs()}
	ms := newMockKVStore()
	c := New(inner, ms, "recipegate:", time.Hour, nil, nil)
	ms.data[c.cacheKey("q", testParams)] = []byte("{broken")

	docs, err := c.Search(context.Background(), "q", testParams)
	if err != nil || len(docs) != 2 || inner.calls != 1 {
		t.Fatalf("expected provider fallback, got docs=%d err=%v calls=%d", len(docs), err, inner.calls)
	}
}
