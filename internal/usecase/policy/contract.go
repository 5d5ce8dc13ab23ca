package policy

import (
	"context"

	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
)

// Store persists admin-written domain policies.
type Store interface {
	Load(ctx context.Context) ([]dompolicy.Policy, error)
	Save(ctx context.Context, p dompolicy.Policy) error
	Delete(ctx context.Context, domain string) error
}

// StatsReader reads per-domain serving counters.
type StatsReader interface {
	Get(ctx context.Context, domain string) (dompolicy.Stats, error)
}
