// Package audit persists terminal request outcomes to a local SQLite
// database. The log is append-only and survives process restarts, so
// every question, every generated statement, and every rejection stays
// reviewable after the fact.
package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/askfit/internal/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// Fixed-width fraction keeps created_at lexicographically sortable;
// RFC3339Nano trims trailing zeros and breaks string ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Log is a durable request audit trail backed by SQLite.
// Uses WAL mode so reads stay concurrent with writes.
type Log struct {
	db     *sql.DB
	logger *slog.Logger
}

// Entry is one audited request as stored.
type Entry struct {
	Token        string        `json:"token"`
	Question     string        `json:"question"`
	Statement    string        `json:"statement,omitempty"`
	State        string        `json:"state"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	RowCount     int           `json:"row_count"`
	Duration     time.Duration `json:"duration_ms"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Open creates or opens the audit database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// against an existing database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func Open(path string, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Log{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// Write inserts one terminal outcome.
// Uses ON CONFLICT(token) DO NOTHING for idempotency - a replayed write
// for the same token is silently ignored.
func (l *Log) Write(ctx context.Context, outcome *pipeline.Outcome) error {
	var kind, message string
	if outcome.Err != nil {
		kind = string(outcome.Err.Kind)
		message = outcome.Err.Error()
	}
	var rowCount int
	if outcome.Results != nil {
		rowCount = outcome.Results.RowCount
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO requests
		(token, question, statement, state, error_kind, error_message, row_count, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		outcome.Token,
		outcome.Question,
		outcome.Statement,
		string(outcome.State),
		kind,
		message,
		rowCount,
		outcome.Duration.Milliseconds(),
		time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}

	return nil
}

// Record implements pipeline.AuditSink. Audit failures are logged and
// swallowed; a broken audit log must not fail the request it describes.
func (l *Log) Record(ctx context.Context, outcome *pipeline.Outcome) {
	if err := l.Write(ctx, outcome); err != nil {
		l.logger.Error("audit write failed", "request", outcome.Token, "error", err)
	}
}

// Recent returns the newest entries, most recent first. limit <= 0
// defaults to 20.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT token, question, statement, state, error_kind, error_message, row_count, duration_ms, created_at
		FROM requests
		ORDER BY created_at DESC, token DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ByToken returns the entry for one request token.
// Returns sql.ErrNoRows wrapped when the token was never audited.
func (l *Log) ByToken(ctx context.Context, token string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT token, question, statement, state, error_kind, error_message, row_count, duration_ms, created_at
		FROM requests
		WHERE token = ?
	`, token)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("read audit entry %s: %w", token, err)
	}
	return entry, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var durationMS int64
	var createdAt string
	if err := s.Scan(
		&e.Token,
		&e.Question,
		&e.Statement,
		&e.State,
		&e.ErrorKind,
		&e.ErrorMessage,
		&e.RowCount,
		&durationMS,
		&createdAt,
	); err != nil {
		return nil, err
	}

	e.Duration = time.Duration(durationMS) * time.Millisecond
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	e.CreatedAt = ts

	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
