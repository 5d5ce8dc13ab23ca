// Package policy serves the domain policy table and its admin operations.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain"
	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
)

// Service holds the current policy snapshot. Readers never lock; admin
// writes are serialized, persisted, then published by swapping the pointer.
type Service struct {
	table  atomic.Pointer[dompolicy.Table]
	base   []dompolicy.Policy
	store  Store
	stats  StatsReader
	logger *zap.Logger

	writeMu sync.Mutex
}

// New creates a Service over base (built-in plus configured policies).
// store and stats can be nil.
func New(base []dompolicy.Policy, store Store, stats StatsReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{base: base, store: store, stats: stats, logger: logger}
	s.table.Store(dompolicy.NewTable(base))
	return s
}

// Snapshot returns the current immutable table.
func (s *Service) Snapshot() *dompolicy.Table {
	return s.table.Load()
}

// Lookup resolves the policy for a domain or URL.
func (s *Service) Lookup(domainOrURL string) dompolicy.Policy {
	return s.Snapshot().Lookup(domainOrURL)
}

// ByKind groups the current policies by kind.
func (s *Service) ByKind() map[dompolicy.Kind][]dompolicy.Policy {
	return s.Snapshot().ByKind()
}

// Reload rebuilds the table from base plus every stored policy.
func (s *Service) Reload(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	stored, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load policies: %w", err)
	}
	all := make([]dompolicy.Policy, 0, len(s.base)+len(stored))
	all = append(all, s.base...)
	all = append(all, stored...)
	next := dompolicy.NewTable(all)
	s.table.Store(next)

	s.logger.Info("Domain policies reloaded",
		zap.Int("stored", len(stored)),
		zap.Int("total", next.Len()),
	)
	return nil
}

// Upsert validates, persists and publishes p.
func (s *Service) Upsert(ctx context.Context, p dompolicy.Policy) (dompolicy.Policy, error) {
	if err := p.Validate(); err != nil {
		return dompolicy.Policy{}, err
	}
	p.Domain = dompolicy.NormalizeDomain(p.Domain)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, p); err != nil {
			return dompolicy.Policy{}, fmt.Errorf("save policy: %w", err)
		}
	}
	s.table.Store(s.Snapshot().With(p))

	s.logger.Info("Domain policy updated",
		zap.String("domain", p.Domain),
		zap.String("kind", string(p.Kind)),
		zap.Float64("boost", p.Boost),
	)
	return p, nil
}

// Remove deletes the policy registered for exactly d.
func (s *Service) Remove(ctx context.Context, d string) error {
	d = dompolicy.NormalizeDomain(d)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.Snapshot()
	if _, ok := cur.Get(d); !ok {
		return fmt.Errorf("%w: %s", domain.ErrPolicyNotFound, d)
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, d); err != nil && !errors.Is(err, domain.ErrPolicyNotFound) {
			return fmt.Errorf("delete policy: %w", err)
		}
	}
	s.table.Store(cur.Without(d))

	s.logger.Info("Domain policy removed", zap.String("domain", d))
	return nil
}

// Stats returns serving counters for d.
func (s *Service) Stats(ctx context.Context, d string) (dompolicy.Stats, error) {
	d = dompolicy.NormalizeDomain(d)
	if s.stats == nil {
		return dompolicy.Stats{Domain: d}, nil
	}
	st, err := s.stats.Get(ctx, d)
	if err != nil {
		return dompolicy.Stats{}, fmt.Errorf("get domain stats: %w", err)
	}
	return st, nil
}
