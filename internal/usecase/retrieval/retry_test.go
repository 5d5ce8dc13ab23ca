package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/recipegate/internal/domain"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.Delay(1) != 800*time.Millisecond || p.Delay(2) != 1600*time.Millisecond {
		t.Errorf("delays = %v, %v", p.Delay(1), p.Delay(2))
	}
}

func TestRetryDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	sleeps := &recordingSleep{}
	_, attempts, err := retryDo(context.Background(), DefaultRetryPolicy(), sleeps.sleep,
		func(context.Context) (int, error) {
			calls++
			return 0, domain.NewRetrievalError(domain.RetrievalMissingCredentials, 0, nil)
		})
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("unexpected error %v", err)
	}
	if calls != 1 || attempts != 1 || len(sleeps.delays) != 0 {
		t.Errorf("calls=%d attempts=%d sleeps=%v", calls, attempts, sleeps.delays)
	}
}

func TestRetryDo_Exhausts(t *testing.T) {
	sleeps := &recordingSleep{}
	_, attempts, err := retryDo(context.Background(), DefaultRetryPolicy(), sleeps.sleep,
		func(context.Context) (int, error) {
			return 0, domain.NewRetrievalError(domain.RetrievalUpstream, 503, nil)
		})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("unexpected error %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	want := []time.Duration{800 * time.Millisecond, 1600 * time.Millisecond}
	if len(sleeps.delays) != 2 || sleeps.delays[0] != want[0] || sleeps.delays[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", sleeps.delays, want)
	}
}

func TestRetryDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, attempts, err := retryDo(ctx, DefaultRetryPolicy(), func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}, func(context.Context) (int, error) {
		calls++
		return 0, domain.NewRetrievalError(domain.RetrievalTimeout, 0, nil)
	})
	if err == nil || calls != 1 || attempts != 1 {
		t.Errorf("err=%v calls=%d attempts=%d", err, calls, attempts)
	}
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := sleepCtx(context.Background(), time.Millisecond); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestMapOrdered(t *testing.T) {
	in := make([]int, 100)
	for i := range in {
		in[i] = i
	}
	out := mapOrdered(3, in, func(v int) int { return v * v })
	for i, v := range out {
		if v != i*i {
			t.Fatalf("out[%d] = %d", i, v)
		}
	}
	if got := mapOrdered[int, int](0, nil, nil); len(got) != 0 {
		t.Errorf("expected empty output, got %v", got)
	}
}
