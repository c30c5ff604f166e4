// Package audit mirrors burn-in lifecycle transitions into PostgreSQL for
// long-term reporting. The JSON status store remains the sweep's only
// source of truth — a mirror write failure is logged and swallowed, never
// propagated to the caller.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/svdh2/burnin-orchestrator/internal/status"
)

// Sink records a transition for later reporting. Implementations must never
// let a write failure affect the sweep's control flow.
type Sink interface {
	RecordTransition(ctx context.Context, label string, from, to status.State, runs, passes int, metadata map[string]interface{})
}

// PostgresSink writes transitions to the transition_audit table.
type PostgresSink struct {
	db      *sql.DB
	logger  *slog.Logger
	timeout time.Duration
}

// TransitionAuditTable is the table this sink writes to. The migrator's
// embedded migration validation (cmd/migrator) checks every migration it
// applies against this name, so the Go sink and the SQL schema can never
// drift apart silently.
const TransitionAuditTable = "transition_audit"

const defaultWriteTimeout = 3 * time.Second

// Open connects to databaseURL and returns a ready PostgresSink. The
// connection pool is capped at 10 open and 2 idle connections, each reused
// for at most 30 minutes.
func Open(databaseURL string, logger *slog.Logger) (*PostgresSink, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresSink{db: db, logger: logger, timeout: defaultWriteTimeout}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// RecordTransition inserts one row into transition_audit. Any error is
// logged and discarded — the sweep never learns about it.
func (s *PostgresSink) RecordTransition(
	ctx context.Context,
	label string,
	from, to status.State,
	runs, passes int,
	metadata map[string]interface{},
) {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		metadataJSON = []byte("{}")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (label, from_state, to_state, runs, passes, metadata, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, TransitionAuditTable)

	_, err = s.db.ExecContext(ctx, query, label, string(from), string(to), runs, passes, metadataJSON, time.Now())
	if err != nil {
		s.logger.Warn("failed to write transition audit row",
			"label", label, "from", from, "to", to, "error", err.Error())
	}
}

// NoopSink discards every transition; used when no audit database is
// configured.
type NoopSink struct{}

// RecordTransition is a no-op.
func (NoopSink) RecordTransition(context.Context, string, status.State, status.State, int, int, map[string]interface{}) {
}
