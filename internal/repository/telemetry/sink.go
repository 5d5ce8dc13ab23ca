// Package telemetry persists telemetry events to an append-only SQLite log.
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // driver

	domtelemetry "github.com/kailas-cloud/recipegate/internal/domain/telemetry"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	anon_id     TEXT,
	query       TEXT,
	context     TEXT,
	allergens   TEXT,
	payload     TEXT,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS events_kind_created ON events (kind, created_at);
`

// DefaultBuffer is the event queue size used when none is configured.
const DefaultBuffer = 1024

const writeTimeout = 5 * time.Second

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Sink queues events in memory and writes them from a single goroutine.
// Emit never blocks: when the queue is full the event is dropped and counted.
type Sink struct {
	db      *sql.DB
	events  chan domtelemetry.Event
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped prometheus.Counter
	logger  *zap.Logger
}

// Open opens the SQLite database at path, migrates it and starts the writer.
// dropped may be nil.
func Open(path string, buffer int, dropped prometheus.Counter, logger *zap.Logger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; also keeps a :memory: database on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s := &Sink{
		db:      db,
		events:  make(chan domtelemetry.Event, buffer),
		done:    make(chan struct{}),
		dropped: dropped,
		logger:  logger,
	}
	go s.run()
	return s, nil
}

// Emit enqueues e without blocking.
func (s *Sink) Emit(_ context.Context, e domtelemetry.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop(e, "closed")
		return
	}
	select {
	case s.events <- e:
	default:
		s.drop(e, "queue full")
	}
}

// Close stops accepting events, drains the queue and closes the database.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	<-s.done
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// HealthCheck pings the database.
func (s *Sink) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("telemetry ping: %w", err)
	}
	return nil
}

// Recent returns up to limit events of kind, newest first.
// An empty kind matches every kind.
func (s *Sink) Recent(ctx context.Context, kind domtelemetry.Kind, limit int) ([]domtelemetry.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, anon_id, query, context, allergens, payload, created_at
		 FROM events WHERE (? = '' OR kind = ?) ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		string(kind), string(kind), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []domtelemetry.Event
	for rows.Next() {
		var e domtelemetry.Event
		var k, created string
		var anon, query, ctxName, alg, payload sql.NullString
		if err := rows.Scan(&e.ID, &k, &anon, &query, &ctxName, &alg, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = domtelemetry.Kind(k)
		e.AnonID = anon.String
		e.Query = query.String
		e.Context = ctxName.String
		if alg.String != "" {
			e.Allergens = strings.Split(alg.String, ",")
		}
		if payload.String != "" {
			e.Payload = []byte(payload.String)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *Sink) run() {
	defer close(s.done)
	for e := range s.events {
		if err := s.write(e); err != nil {
			s.logger.Warn("Failed to write telemetry event",
				zap.String("id", e.ID), zap.String("kind", string(e.Kind)), zap.Error(err))
		}
	}
}

func (s *Sink) write(e domtelemetry.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, kind, anon_id, query, context, allergens, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		string(e.Kind),
		nullIfEmpty(e.AnonID),
		nullIfEmpty(e.Query),
		nullIfEmpty(e.Context),
		nullIfEmpty(strings.Join(e.Allergens, ",")),
		nullIfEmpty(string(e.Payload)),
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Sink) drop(e domtelemetry.Event, reason string) {
	if s.dropped != nil {
		s.dropped.Inc()
	}
	s.logger.Debug("Telemetry event dropped", zap.String("kind", string(e.Kind)), zap.String("reason", reason))
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
