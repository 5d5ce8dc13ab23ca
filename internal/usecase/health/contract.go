package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Checker checks one optional dependency (search provider, telemetry store).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
