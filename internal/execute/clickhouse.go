package execute

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/roach88/askfit/internal/grammar"
)

// queryTimeout bounds one statement execution. Independent of the
// generation timeout: a slow store fails this request's state machine
// without touching others.
const queryTimeout = 60 * time.Second

// Config holds ClickHouse connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string // empty means the server default
	Secure   bool   // TLS; required for ClickHouse Cloud
}

// DSN renders the clickhouse:// connection string for database/sql.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "clickhouse",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}

	q := url.Values{}
	if c.Secure {
		q.Set("secure", "true")
	}
	q.Set("dial_timeout", "30s")
	q.Set("read_timeout", "60s")
	u.RawQuery = q.Encode()

	return u.String()
}

// Store is the ClickHouse-backed Executor.
//
// One process-wide instance is created at startup; database/sql manages
// the underlying connection pool, which is established lazily on first
// use and shared by all concurrent requests.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open prepares a ClickHouse handle. The network connection is not
// dialed here; the first query (or Ping) establishes it.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("clickhouse host is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("clickhouse", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open clickhouse handle: %w", err)
	}

	// Analytical queries are short-lived; a small pool is plenty.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	return &Store{db: db, logger: logger}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &Failure{Reason: "store unreachable", Err: err}
	}
	return nil
}

// Execute implements Executor.
func (s *Store) Execute(ctx context.Context, stmt grammar.Statement) (*ResultSet, error) {
	if stmt.IsZero() {
		return nil, ErrUnvalidated
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, stmt.Text())
	if err != nil {
		return nil, &Failure{Reason: "store rejected statement", Err: err}
	}
	defer rows.Close()

	rs, err := collectRows(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("statement executed",
		"rows", rs.RowCount,
		"columns", len(rs.Columns),
		"duration", time.Since(start),
	)
	return rs, nil
}

// collectRows drains a row cursor into a ResultSet, preserving the
// store's native column order.
func collectRows(rows *sql.Rows) (*ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, &Failure{Reason: "read result columns", Err: err}
	}

	rs := &ResultSet{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &Failure{Reason: "scan result row", Err: err}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, &Failure{Reason: "iterate result rows", Err: err}
	}

	rs.RowCount = len(rs.Rows)
	return rs, nil
}
