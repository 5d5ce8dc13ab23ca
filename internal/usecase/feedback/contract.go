package feedback

import (
	"context"

	"github.com/kailas-cloud/recipegate/internal/domain/telemetry"
)

// Sink accepts telemetry events without blocking.
type Sink interface {
	Emit(ctx context.Context, e telemetry.Event)
}

// ViolationRecorder counts allergen mismatch reports per domain.
type ViolationRecorder interface {
	RecordViolation(ctx context.Context, domain string) error
}

// ClickRecorder counts positive feedback per domain.
type ClickRecorder interface {
	RecordClicks(ctx context.Context, domains []string) error
}
