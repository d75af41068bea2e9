// Package audit persists action telemetry events to SQLite so completed
// executions can be listed after the fact.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/davidroman0O/goaction/telemetry"
)

// Entry is one persisted stop or exception event.
type Entry struct {
	EventID    string
	Name       string
	Owner      string
	Action     string
	Kind       telemetry.EventKind
	Status     telemetry.Status
	Reason     string
	DurationUS int64
	Metadata   map[string]any
	RecordedAt time.Time
}

// Config configures the SQLite store.
type Config struct {
	// Path is the database file. ":memory:" keeps everything in memory.
	Path string
	// MaxOpenConns defaults to 1, which in-memory databases require.
	MaxOpenConns int
}

// Store writes events to SQLite. It implements telemetry.Handler.
type Store struct {
	db      *sql.DB
	onError func(error)
}

// Open opens the database and creates the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}

	connStr := cfg.Path
	if cfg.Path != ":memory:" {
		connStr += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns == 0 {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, onError: func(error) {}}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// OnError sets the callback for write failures in HandleEvent, which cannot
// return an error.
func (s *Store) OnError(fn func(error)) {
	if fn != nil {
		s.onError = fn
	}
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS action_events (
			event_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner TEXT NOT NULL,
			action TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			duration_us INTEGER NOT NULL,
			metadata TEXT,
			recorded_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_action_events_action ON action_events(owner, action)`,
		`CREATE INDEX IF NOT EXISTS idx_action_events_recorded_at ON action_events(recorded_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// HandleEvent implements telemetry.Handler. Only stop and exception events
// are stored.
func (s *Store) HandleEvent(ctx context.Context, ev telemetry.Event) {
	if ev.Kind == telemetry.KindStart {
		return
	}
	if err := s.Record(ctx, ev); err != nil {
		s.onError(err)
	}
}

// Record stores ev.
func (s *Store) Record(ctx context.Context, ev telemetry.Event) error {
	metadata, err := json.Marshal(printable(ev.Metadata))
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var reason sql.NullString
	if ev.Reason != nil {
		reason = sql.NullString{String: fmt.Sprint(ev.Reason), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO action_events (event_id, name, owner, action, kind, status, reason, duration_us, metadata, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.ID,
		strings.Join(ev.Name, "."),
		ev.Owner,
		ev.Action,
		string(ev.Kind),
		string(ev.Status),
		reason,
		ev.Measurements.DurationMicros(),
		string(metadata),
		ev.Measurements.SystemTime.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Owner  string
	Action string
	Status telemetry.Status
	Limit  int
}

// List returns stored entries, most recent first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT event_id, name, owner, action, kind, status, reason, duration_us, metadata, recorded_at
		FROM action_events WHERE 1=1`
	var args []any

	if f.Owner != "" {
		query += " AND owner = ?"
		args = append(args, f.Owner)
	}
	if f.Action != "" {
		query += " AND action = ?"
		args = append(args, f.Action)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, string(f.Status))
	}
	query += " ORDER BY recorded_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			kind       string
			status     string
			reason     sql.NullString
			metadata   sql.NullString
			recordedAt int64
		)
		if err := rows.Scan(&e.EventID, &e.Name, &e.Owner, &e.Action, &kind, &status,
			&reason, &e.DurationUS, &metadata, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = telemetry.EventKind(kind)
		e.Status = telemetry.Status(status)
		e.Reason = reason.String
		e.RecordedAt = time.Unix(0, recordedAt)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// printable keeps JSON-encodable metadata values and renders the rest with
// fmt.
func printable(md telemetry.Metadata) map[string]any {
	out := make(map[string]any, len(md))
	for k, v := range md {
		if _, err := json.Marshal(v); err != nil {
			out[k] = fmt.Sprint(v)
			continue
		}
		out[k] = v
	}
	return out
}
