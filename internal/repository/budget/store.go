// Package budget shares rerank embedding token counters between replicas.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/recipegate/internal/db"
)

// counters is the consumer interface for counter operations.
type counters interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrByExpire(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}

// Store implements usecase/embedding.BudgetStore.
type Store struct {
	kv    counters
	grace time.Duration
	now   func() time.Time
}

// New creates a counter store. Counters outlive their window by grace so a
// replica starting just after rollover still reads the closing total.
func New(kv counters, grace time.Duration) *Store {
	return &Store{kv: kv, grace: grace, now: time.Now}
}

// Add charges tokens to the window counter at key and returns the total
// spent by all replicas.
func (s *Store) Add(ctx context.Context, key string, tokens int64, windowEnd time.Time) (int64, error) {
	ttl := max(windowEnd.Sub(s.now()), 0) + s.grace
	total, err := s.kv.IncrByExpire(ctx, key, tokens, ttl)
	if err != nil {
		return 0, fmt.Errorf("charge %s: %w", key, err)
	}
	return total, nil
}

// Load returns the window counter at key, 0 before the first charge.
func (s *Store) Load(ctx context.Context, key string) (int64, error) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("load %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("load %s: parse counter: %w", key, err)
	}
	return val, nil
}
