// Package policystore persists admin-written domain policies in a single
// hash keyed by domain.
package policystore

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain"
	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
)

// store is the consumer interface for policy persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
}

// Repo implements usecase/policy.Store.
type Repo struct {
	store  store
	key    string
	logger *zap.Logger
}

// New creates a policy repository. prefix namespaces the hash key.
func New(s store, prefix string, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, key: prefix + "policies", logger: logger}
}

// Load returns every stored policy sorted by domain.
// Corrupt entries are skipped with a warning.
func (r *Repo) Load(ctx context.Context) ([]dompolicy.Policy, error) {
	m, err := r.store.HGetAll(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("load policies: %w", err)
	}

	out := make([]dompolicy.Policy, 0, len(m))
	for d, raw := range m {
		p, err := policyFromField(d, raw)
		if err != nil {
			r.logger.Warn("Skipping stored policy", zap.String("domain", d), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}

// Save upserts p.
func (r *Repo) Save(ctx context.Context, p dompolicy.Policy) error {
	d := dompolicy.NormalizeDomain(p.Domain)
	val, err := policyToField(p)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, r.key, map[string]string{d: val}); err != nil {
		return fmt.Errorf("save policy %s: %w", d, err)
	}
	return nil
}

// Delete removes the stored policy for d.
func (r *Repo) Delete(ctx context.Context, d string) error {
	d = dompolicy.NormalizeDomain(d)
	n, err := r.store.HDel(ctx, r.key, d)
	if err != nil {
		return fmt.Errorf("delete policy %s: %w", d, err)
	}
	if n == 0 {
		return domain.ErrPolicyNotFound
	}
	return nil
}
