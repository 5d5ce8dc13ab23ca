// Package domainstats keeps per-domain serving counters in hashes.
package domainstats

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/recipegate/internal/db"
	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
)

// Hash fields.
const (
	fieldImpressions = "impressions"
	fieldClicks      = "clicks"
	fieldViolations  = "violations"
)

// store is the consumer interface for counter operations (ISP).
type store interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HIncrByMulti(ctx context.Context, items []db.HashIncrItem) error
}

// Store counts impressions, clicks and allergen violations per domain.
type Store struct {
	store  store
	prefix string
}

// New creates a domain stats store. prefix namespaces the hash keys.
func New(s store, prefix string) *Store {
	return &Store{store: s, prefix: prefix + "domain_stats:"}
}

// RecordImpressions counts one impression per served result.
func (s *Store) RecordImpressions(ctx context.Context, domains []string) error {
	return s.incrEach(ctx, domains, fieldImpressions)
}

// RecordClicks counts one click per positively rated result.
func (s *Store) RecordClicks(ctx context.Context, domains []string) error {
	return s.incrEach(ctx, domains, fieldClicks)
}

// RecordViolation counts one allergen mismatch report.
func (s *Store) RecordViolation(ctx context.Context, domain string) error {
	d := dompolicy.NormalizeDomain(domain)
	if d == "" {
		return nil
	}
	if _, err := s.store.HIncrBy(ctx, s.key(d), fieldViolations, 1); err != nil {
		return fmt.Errorf("stats HINCRBY %s: %w", d, err)
	}
	return nil
}

// Get returns the counters of domain. Unknown domains have zero counters.
func (s *Store) Get(ctx context.Context, domain string) (dompolicy.Stats, error) {
	d := dompolicy.NormalizeDomain(domain)
	m, err := s.store.HGetAll(ctx, s.key(d))
	if err != nil {
		return dompolicy.Stats{}, fmt.Errorf("stats HGETALL %s: %w", d, err)
	}

	out := dompolicy.Stats{Domain: d}
	if out.Impressions, err = parseCounter(m, fieldImpressions); err != nil {
		return dompolicy.Stats{}, err
	}
	if out.Clicks, err = parseCounter(m, fieldClicks); err != nil {
		return dompolicy.Stats{}, err
	}
	if out.Violations, err = parseCounter(m, fieldViolations); err != nil {
		return dompolicy.Stats{}, err
	}
	return out, nil
}

// incrEach folds repeated domains into one increment each and pipelines them
// in input order.
func (s *Store) incrEach(ctx context.Context, domains []string, field string) error {
	counts := make(map[string]int64, len(domains))
	var order []string
	for _, raw := range domains {
		d := dompolicy.NormalizeDomain(raw)
		if d == "" {
			continue
		}
		if counts[d] == 0 {
			order = append(order, d)
		}
		counts[d]++
	}
	if len(order) == 0 {
		return nil
	}

	items := make([]db.HashIncrItem, len(order))
	for i, d := range order {
		items[i] = db.HashIncrItem{Key: s.key(d), Field: field, Delta: counts[d]}
	}
	if err := s.store.HIncrByMulti(ctx, items); err != nil {
		return fmt.Errorf("stats %s: %w", field, err)
	}
	return nil
}

func (s *Store) key(d string) string { return s.prefix + d }

func parseCounter(m map[string]string, field string) (int64, error) {
	raw, ok := m[field]
	if !ok || raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stats %s parse: %w", field, err)
	}
	return v, nil
}
