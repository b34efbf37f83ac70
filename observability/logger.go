// Package observability persists structured agent-step events to a durable
// store so a host application can build dashboards/alerts on top of the
// session core without re-parsing AgentHistory strings.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hahsanayub/browseragent/idgen"
)

const Schema = `
CREATE TABLE IF NOT EXISTS agent_step_events (
	event_id    TEXT PRIMARY KEY,
	event_type  TEXT NOT NULL,
	session_id  TEXT NOT NULL,
	step_number INTEGER NOT NULL,
	url         TEXT,
	action_kind TEXT,
	success     INTEGER NOT NULL DEFAULT 1,
	details     TEXT,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agent_step_events_session ON agent_step_events(session_id, step_number);
`

// StepEvent is a single structured observation about one agent step:
// a capture, an LLM invocation, an action execution, or a recovery.
// This is the durable counterpart of the in-memory RecentEvent ring.
type StepEvent struct {
	EventType  string // e.g. "navigation_started", "navigation_completed", "agent_step_completed"
	SessionID  string
	StepNumber int
	URL        string
	ActionKind string
	Success    bool
	Details    string // optional JSON
}

// EventLogger writes step events. Backed by sqlite; any database/sql driver
// works since only standard exec/query is used.
type EventLogger struct {
	db    *sql.DB
	newID idgen.Generator
}

// EventLoggerOption configures an EventLogger.
type EventLoggerOption func(*EventLogger)

// WithEventIDGenerator sets a custom ID generator for event IDs.
func WithEventIDGenerator(gen idgen.Generator) EventLoggerOption {
	return func(l *EventLogger) { l.newID = gen }
}

// NewEventLogger creates a logger backed by the given database. Call Init
// once before LogEvent to create the schema.
func NewEventLogger(db *sql.DB, opts ...EventLoggerOption) *EventLogger {
	l := &EventLogger{
		db:    db,
		newID: idgen.Prefixed("evt_", idgen.Default),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Init creates the agent_step_events table if it doesn't exist.
func (l *EventLogger) Init() error {
	_, err := l.db.Exec(Schema)
	return err
}

// LogEvent records a step event. Non-blocking in the sense that failures are
// logged via slog but never propagate — a failing observability store must
// never block the agent loop.
func (l *EventLogger) LogEvent(ctx context.Context, event StepEvent) {
	eventID := l.newID()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO agent_step_events (
			event_id, event_type, session_id, step_number, url, action_kind, success, details, created_at
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		eventID, event.EventType, event.SessionID, event.StepNumber,
		event.URL, event.ActionKind, event.Success, event.Details, time.Now().Unix())
	if err != nil {
		slog.Error("observability: step event log failed", "error", err, "event_type", event.EventType)
	}
}

// RetentionConfig specifies retention in days. Zero means no cleanup.
type RetentionConfig struct {
	StepEventsDays int
	RunVacuumAfter bool
}

// Cleanup deletes step events older than the configured retention.
func Cleanup(ctx context.Context, db *sql.DB, cfg RetentionConfig) error {
	if cfg.StepEventsDays > 0 {
		cutoff := time.Now().Unix() - int64(cfg.StepEventsDays*86400)
		if _, err := db.ExecContext(ctx, `DELETE FROM agent_step_events WHERE created_at < ?`, cutoff); err != nil {
			return fmt.Errorf("observability: cleanup: %w", err)
		}
	}
	if cfg.RunVacuumAfter {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			return fmt.Errorf("observability: vacuum: %w", err)
		}
	}
	return nil
}
