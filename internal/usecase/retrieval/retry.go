package retrieval

import (
	"context"
	"time"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/metrics"
)

// RetryPolicy bounds retries of one external search call.
type RetryPolicy struct {
	Attempts   int
	BaseDelay  time.Duration
	Multiplier float64
}

// DefaultRetryPolicy is 3 attempts with 0.8s, 1.6s waits.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 800 * time.Millisecond, Multiplier: 2}
}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// sleepFunc waits for d or until ctx is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryDo calls fn until it succeeds, fails with a non-retryable kind, the
// attempts run out or ctx ends. It returns the attempts made.
func retryDo[T any](
	ctx context.Context, p RetryPolicy, sleep sleepFunc, fn func(context.Context) (T, error),
) (T, int, error) {
	attempts := max(p.Attempts, 1)
	var (
		zero T
		err  error
	)
	for attempt := 1; ; attempt++ {
		var out T
		out, err = fn(ctx)
		if err == nil {
			return out, attempt, nil
		}
		kind := domain.RetrievalKindOf(err)
		metrics.RetrievalErrorsTotal.WithLabelValues(string(kind)).Inc()
		if !kind.Retryable() || attempt >= attempts || ctx.Err() != nil {
			return zero, attempt, err
		}
		if serr := sleep(ctx, p.Delay(attempt)); serr != nil {
			return zero, attempt, err
		}
	}
}
