package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/metrics"
)

var testNow = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newBudget(daily, monthly int64, action BudgetAction) *TokenBudget {
	b := NewTokenBudget("rg:", "emb-small", daily, monthly, action, zap.NewNop())
	b.now = func() time.Time { return testNow }
	for _, w := range b.windows {
		w.start = time.Time{}
		w.roll(testNow)
	}
	return b
}

func TestTokenBudget_Admit(t *testing.T) {
	tests := []struct {
		name     string
		daily    int64
		monthly  int64
		action   BudgetAction
		used     int64
		estimate int64
		wantErr  bool
	}{
		{"fits exactly", 100, 0, BudgetActionReject, 60, 40, false},
		{"estimate overruns day", 100, 0, BudgetActionReject, 60, 41, true},
		{"month overruns", 0, 500, BudgetActionReject, 480, 30, true},
		{"warn lets through", 100, 0, BudgetActionWarn, 200, 10, false},
		{"unknown action warns", 100, 0, BudgetAction("drop"), 200, 10, false},
		{"unlimited", 0, 0, BudgetActionReject, 999999999, 1000, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := newBudget(tc.daily, tc.monthly, tc.action)
			b.Record(context.Background(), tc.used)

			err := b.Admit(context.Background(), tc.estimate)
			if tc.wantErr && !errors.Is(err, domain.ErrEmbeddingBudgetExceeded) {
				t.Fatalf("expected ErrEmbeddingBudgetExceeded, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTokenBudget_RejectionCounted(t *testing.T) {
	b := newBudget(10, 0, BudgetActionReject)
	b.model = "emb-reject-count"
	counter := metrics.RerankBudgetRejectionsTotal.WithLabelValues("emb-reject-count", "daily")
	before := testutil.ToFloat64(counter)

	if err := b.Admit(context.Background(), 11); err == nil {
		t.Fatal("expected refusal")
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("rejections delta = %v, want 1", got)
	}
}

func TestTokenBudget_RemainingAndGauge(t *testing.T) {
	b := newBudget(1000, 10000, BudgetActionWarn)
	b.Record(context.Background(), 300)

	if got := b.Remaining(PeriodDay); got != 700 {
		t.Errorf("daily remaining = %d, want 700", got)
	}
	if got := b.Remaining(PeriodMonth); got != 9700 {
		t.Errorf("monthly remaining = %d, want 9700", got)
	}
	gauge := metrics.RerankBudgetRemaining.WithLabelValues("emb-small", "daily")
	if got := testutil.ToFloat64(gauge); got != 700 {
		t.Errorf("daily gauge = %v, want 700", got)
	}

	b.Record(context.Background(), 5000)
	if got := b.Remaining(PeriodDay); got != 0 {
		t.Errorf("daily remaining after overrun = %d, want 0", got)
	}

	unlimited := newBudget(0, 0, BudgetActionWarn)
	if unlimited.Remaining(PeriodDay) != -1 || unlimited.Remaining(PeriodMonth) != -1 {
		t.Error("expected -1 for unlimited budgets")
	}
}

func TestTokenBudget_DayRollover(t *testing.T) {
	b := newBudget(100, 1000, BudgetActionReject)
	now := time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.Record(context.Background(), 100)
	if err := b.Admit(context.Background(), 1); err == nil {
		t.Fatal("expected budget exceeded before midnight")
	}

	now = now.Add(2 * time.Minute)
	if err := b.Admit(context.Background(), 1); err != nil {
		t.Fatalf("expected fresh daily budget, got %v", err)
	}
	if b.Used(PeriodMonth) != 100 {
		t.Errorf("monthly counter must survive a day rollover, got %d", b.Used(PeriodMonth))
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		texts []string
		want  int64
	}{
		{nil, 0},
		{[]string{"abcd"}, 1},
		{[]string{"abcde"}, 2},
		{[]string{"卵なし"}, 3},
		{[]string{"ＡＢ", "oat milk"}, 4},
	}
	for _, tc := range tests {
		if got := EstimateTokens(tc.texts); got != tc.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tc.texts, got, tc.want)
		}
	}
}

// --- Mocks ---

type mockBudgetStore struct {
	mu      sync.Mutex
	data    map[string]int64
	ends    map[string]time.Time
	loadErr error
	addErr  error
}

func newMockBudgetStore() *mockBudgetStore {
	return &mockBudgetStore{data: map[string]int64{}, ends: map[string]time.Time{}}
}

func (m *mockBudgetStore) Add(_ context.Context, key string, tokens int64, windowEnd time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return 0, m.addErr
	}
	m.data[key] += tokens
	m.ends[key] = windowEnd
	return m.data[key], nil
}

func (m *mockBudgetStore) Load(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return 0, m.loadErr
	}
	return m.data[key], nil
}

func TestTokenBudget_WithStore_LoadsWindows(t *testing.T) {
	store := newMockBudgetStore()
	store.data["rg:rerank_tokens:emb-small:daily:2026-10-17"] = 300
	store.data["rg:rerank_tokens:emb-small:monthly:2026-10"] = 5000

	b := newBudget(1000, 10000, BudgetActionReject).WithStore(context.Background(), store)

	if b.Used(PeriodDay) != 300 {
		t.Errorf("daily used = %d, want 300", b.Used(PeriodDay))
	}
	if b.Used(PeriodMonth) != 5000 {
		t.Errorf("monthly used = %d, want 5000", b.Used(PeriodMonth))
	}
}

func TestTokenBudget_Record_ChargesWindowsWithEnds(t *testing.T) {
	store := newMockBudgetStore()
	b := newBudget(10000, 100000, BudgetActionWarn).WithStore(context.Background(), store)

	b.Record(context.Background(), 100)
	b.Record(context.Background(), 200)

	dayKey := "rg:rerank_tokens:emb-small:daily:2026-10-17"
	monthKey := "rg:rerank_tokens:emb-small:monthly:2026-10"
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.data[dayKey] != 300 || store.data[monthKey] != 300 {
		t.Errorf("store daily=%d monthly=%d, want 300/300", store.data[dayKey], store.data[monthKey])
	}
	if want := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC); !store.ends[dayKey].Equal(want) {
		t.Errorf("daily window end = %v, want %v", store.ends[dayKey], want)
	}
	if want := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC); !store.ends[monthKey].Equal(want) {
		t.Errorf("monthly window end = %v, want %v", store.ends[monthKey], want)
	}
}

func TestTokenBudget_Record_AdoptsSharedTotal(t *testing.T) {
	store := newMockBudgetStore()
	b := newBudget(1000, 0, BudgetActionReject).WithStore(context.Background(), store)

	// Another replica spends after this one loaded.
	store.data["rg:rerank_tokens:emb-small:daily:2026-10-17"] = 900

	b.Record(context.Background(), 50)
	if b.Used(PeriodDay) != 950 {
		t.Errorf("daily used = %d, want 950 from the shared counter", b.Used(PeriodDay))
	}
	if err := b.Admit(context.Background(), 60); err == nil {
		t.Error("expected refusal once the shared total leaves no room")
	}
}

func TestTokenBudget_Record_CanceledRequestStillPersists(t *testing.T) {
	store := newMockBudgetStore()
	b := newBudget(1000, 0, BudgetActionWarn).WithStore(context.Background(), store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.Record(ctx, 40)

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.data["rg:rerank_tokens:emb-small:daily:2026-10-17"] != 40 {
		t.Errorf("spend from a canceled rerank was not persisted")
	}
}

func TestTokenBudget_StoreErrorsAreNonFatal(t *testing.T) {
	store := newMockBudgetStore()
	store.loadErr = errors.New("connection refused")
	store.addErr = errors.New("connection refused")

	b := newBudget(1000, 0, BudgetActionReject).WithStore(context.Background(), store)
	b.Record(context.Background(), 50)

	if b.Used(PeriodDay) != 50 {
		t.Errorf("in-memory counter must advance despite store errors, got %d", b.Used(PeriodDay))
	}
}
