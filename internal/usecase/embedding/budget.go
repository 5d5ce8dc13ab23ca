// Package embedding holds the embedding similarity chain behind the MMR
// reranker: a token budget, a deduplicating batch embedder and cosine
// similarity over the returned vectors.
package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/width"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/metrics"
)

// BudgetAction defines behavior when a rerank batch does not fit the budget.
type BudgetAction string

const (
	// BudgetActionWarn logs once per window and lets the batch through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject refuses the batch; the reranker then falls back to TF-IDF.
	BudgetActionReject BudgetAction = "reject"
)

// Period is the length of a budget window. Windows are aligned to UTC.
type Period string

const (
	PeriodDay   Period = "daily"
	PeriodMonth Period = "monthly"
)

func (p Period) bounds(t time.Time) (start, end time.Time) {
	t = t.UTC()
	if p == PeriodMonth {
		start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func (p Period) stamp(start time.Time) string {
	if p == PeriodMonth {
		return start.Format("2006-01")
	}
	return start.Format("2006-01-02")
}

// BudgetStore shares window counters between replicas.
type BudgetStore interface {
	Add(ctx context.Context, key string, tokens int64, windowEnd time.Time) (int64, error)
	Load(ctx context.Context, key string) (int64, error)
}

type window struct {
	period     Period
	limit      int64
	used       int64
	start, end time.Time
	warned     bool
}

// roll opens a fresh window when t has left the current one.
func (w *window) roll(t time.Time) {
	if !w.start.IsZero() && t.Before(w.end) {
		return
	}
	w.start, w.end = w.period.bounds(t)
	w.used = 0
	w.warned = false
}

func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

// TokenBudget caps the tokens rerank similarity may spend per UTC day and
// month. Rerank batches are sized before the provider call, so Admit refuses
// a batch whose estimate would overrun a window instead of letting it spend
// first. A zero limit means unlimited.
type TokenBudget struct {
	mu        sync.Mutex
	windows   []*window
	action    BudgetAction
	keyPrefix string
	model     string
	store     BudgetStore
	now       func() time.Time
	logger    *zap.Logger
}

// NewTokenBudget creates a budget. Any action other than reject warns.
func NewTokenBudget(
	keyPrefix, model string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *TokenBudget {
	if logger == nil {
		logger = zap.NewNop()
	}
	if action != BudgetActionReject {
		action = BudgetActionWarn
	}
	b := &TokenBudget{
		windows: []*window{
			{period: PeriodDay, limit: dailyLimit},
			{period: PeriodMonth, limit: monthlyLimit},
		},
		action:    action,
		keyPrefix: keyPrefix,
		model:     model,
		now:       time.Now,
		logger:    logger,
	}
	b.mu.Lock()
	b.rollLocked()
	b.publishLocked()
	b.mu.Unlock()
	return b
}

// WithStore attaches shared counters and loads the open windows from them.
func (b *TokenBudget) WithStore(ctx context.Context, store BudgetStore) *TokenBudget {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	b.rollLocked()
	for _, w := range b.windows {
		used, err := store.Load(ctx, b.key(w))
		if err != nil {
			b.logger.Warn("Failed to load rerank token budget",
				zap.String("period", string(w.period)), zap.Error(err))
			continue
		}
		w.used = used
	}
	b.publishLocked()

	b.logger.Info("Rerank token budget loaded",
		zap.String("model", b.model),
		zap.Int64("daily_used", b.windows[0].used),
		zap.Int64("monthly_used", b.windows[1].used),
	)
	return b
}

func (b *TokenBudget) key(w *window) string {
	return fmt.Sprintf("%srerank_tokens:%s:%s:%s", b.keyPrefix, b.model, w.period, w.period.stamp(w.start))
}

// Admit reports whether a rerank batch of about estimate tokens fits every
// window.
func (b *TokenBudget) Admit(_ context.Context, estimate int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollLocked()
	for _, w := range b.windows {
		if w.limit == 0 || w.used+estimate <= w.limit {
			continue
		}
		if b.action == BudgetActionReject {
			metrics.RerankBudgetRejectionsTotal.WithLabelValues(b.model, string(w.period)).Inc()
			return fmt.Errorf("%s window: %w", w.period, domain.ErrEmbeddingBudgetExceeded)
		}
		if !w.warned {
			w.warned = true
			b.logger.Warn("Rerank token budget exceeded, continuing",
				zap.String("model", b.model),
				zap.String("period", string(w.period)),
				zap.Int64("used", w.used),
				zap.Int64("limit", w.limit),
				zap.Int64("estimate", estimate),
			)
		}
	}
	return nil
}

// Record charges tokens to every window. With a store attached, a shared
// total above the local one means other replicas spent too, and it wins.
func (b *TokenBudget) Record(ctx context.Context, tokens int64) {
	if tokens <= 0 {
		return
	}

	type charge struct {
		w     *window
		key   string
		start time.Time
		end   time.Time
	}

	b.mu.Lock()
	b.rollLocked()
	charges := make([]charge, 0, len(b.windows))
	for _, w := range b.windows {
		w.used += tokens
		charges = append(charges, charge{w: w, key: b.key(w), start: w.start, end: w.end})
	}
	store := b.store
	b.publishLocked()
	b.mu.Unlock()

	if store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	for _, c := range charges {
		total, err := store.Add(ctx, c.key, tokens, c.end)
		if err != nil {
			b.logger.Warn("Failed to persist rerank token budget", zap.String("key", c.key), zap.Error(err))
			continue
		}
		b.mu.Lock()
		if c.w.start.Equal(c.start) && total > c.w.used {
			c.w.used = total
			b.publishLocked()
		}
		b.mu.Unlock()
	}
}

// Remaining returns tokens left in the current window, -1 if unlimited.
func (b *TokenBudget) Remaining(p Period) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	if w := b.window(p); w != nil {
		return w.remaining()
	}
	return -1
}

// Used returns tokens spent in the current window.
func (b *TokenBudget) Used(p Period) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	if w := b.window(p); w != nil {
		return w.used
	}
	return 0
}

func (b *TokenBudget) window(p Period) *window {
	for _, w := range b.windows {
		if w.period == p {
			return w
		}
	}
	return nil
}

func (b *TokenBudget) rollLocked() {
	t := b.now()
	for _, w := range b.windows {
		w.roll(t)
	}
}

func (b *TokenBudget) publishLocked() {
	for _, w := range b.windows {
		metrics.RerankBudgetRemaining.WithLabelValues(b.model, string(w.period)).Set(float64(w.remaining()))
	}
}

// EstimateTokens approximates the tokens texts will bill: one per wide
// (CJK) rune and one per four narrow runes.
func EstimateTokens(texts []string) int64 {
	var wide, narrow int64
	for _, t := range texts {
		for _, r := range t {
			switch width.LookupRune(r).Kind() {
			case width.EastAsianWide, width.EastAsianFullwidth:
				wide++
			default:
				narrow++
			}
		}
	}
	return wide + (narrow+3)/4
}
