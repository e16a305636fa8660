// Package store provides SQL persistence for taskclock.
//
// The same schema and queries run on SQLite (modernc.org/sqlite, the default)
// and Postgres (github.com/lib/pq). Every read-check-write sequence that guards
// an invariant runs inside a single transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store provides access to the taskclock database.
type Store struct {
	db     *sql.DB
	driver string
}

// New opens a SQLite store at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	return Open(DriverSQLite, dbPath)
}

// Open connects to the database using driver and dsn, then runs migrations.
// For SQLite the dsn is a file path.
func Open(driver, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
		// WAL for concurrent readers, busy timeout so writers queue instead of failing
		db, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)")
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
		db.SetMaxIdleConns(1)
	case DriverPostgres:
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the name of the SQL driver in use.
func (s *Store) Driver() string {
	return s.driver
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'OPEN',
			owner_id TEXT REFERENCES users(id) ON DELETE SET NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			created_by TEXT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS time_logs (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			started_at BIGINT NOT NULL,
			duration_minutes INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			author_id TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id TEXT PRIMARY KEY,
			task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			owner_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			object_key TEXT NOT NULL,
			uploaded_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			action TEXT NOT NULL,
			inputs_hash TEXT NOT NULL,
			outcome TEXT NOT NULL,
			task_id TEXT,
			details TEXT,
			timestamp BIGINT NOT NULL
		)`,
		// one open timer per (task, user)
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_time_logs_open ON time_logs(task_id, user_id) WHERE duration_minutes IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_owner_id ON tasks(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_time_logs_task_id ON time_logs(task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_time_logs_user_started ON time_logs(user_id, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_task_id ON comments(task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_task_id ON attachments(task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_log_task_id ON audit_log(task_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// q rewrites ? placeholders into the driver's bind syntax.
func (s *Store) q(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsTransient reports whether err is a serialization or lock conflict that
// is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "unique constraint")
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
