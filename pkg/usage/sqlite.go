package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// schemaVersion is the current database schema version.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    dialect TEXT NOT NULL,
    model TEXT NOT NULL,
    stream BOOLEAN NOT NULL,
    status TEXT NOT NULL,
    prompt_tokens INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,
    total_tokens INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    user_id TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_created_at ON usage_records(created_at);
CREATE INDEX IF NOT EXISTS idx_usage_user_id ON usage_records(user_id);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// SQLiteConfig contains configuration for the SQLite usage store.
type SQLiteConfig struct {
	// Path is the database file path. Parent directories are created
	// as needed.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// BusyTimeout is how long a locked database is retried.
	// Default: 5s
	BusyTimeout time.Duration
}

// SQLiteStore implements Store using SQLite with WAL journaling.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if necessary) the usage database at the
// configured path and initializes the schema.
func NewSQLiteStore(cfg *SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "mkdir", Err: err}
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "open", Err: err}
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &SQLiteStore{
		db:     db,
		logger: logger.With("component", "usage.sqlite"),
	}

	if err := s.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("usage store initialized", "path", cfg.Path)

	return s, nil
}

func (s *SQLiteStore) initialize(busyTimeout time.Duration) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return &StorageError{Backend: "sqlite", Op: "enable_wal", Err: err}
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return &StorageError{Backend: "sqlite", Op: "set_busy_timeout", Err: err}
	}
	if _, err := s.db.Exec(schema); err != nil {
		return &StorageError{Backend: "sqlite", Op: "create_schema", Err: err}
	}
	if _, err := s.db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return &StorageError{Backend: "sqlite", Op: "insert_schema_version", Err: err}
	}

	var version int
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return &StorageError{Backend: "sqlite", Op: "get_schema_version", Err: err}
	}
	if version != schemaVersion {
		return &StorageError{
			Backend: "sqlite",
			Op:      "schema_version_mismatch",
			Err:     fmt.Errorf("expected schema version %d, got %d", schemaVersion, version),
		}
	}

	return nil
}

// Record writes one usage record.
func (s *SQLiteStore) Record(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO usage_records (
			id, request_id, dialect, model, stream, status,
			prompt_tokens, completion_tokens, total_tokens,
			duration_ms, user_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var userID interface{}
	if rec.UserID != "" {
		userID = rec.UserID
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.RequestID, rec.Dialect, rec.Model, rec.Stream, rec.Status,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens,
		rec.DurationMs, userID, rec.CreatedAt,
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "record", Err: err}
	}

	return nil
}

// Summarize aggregates records created at or after since.
func (s *SQLiteStore) Summarize(ctx context.Context, since time.Time) (*Summary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COALESCE(SUM(total_tokens), 0)
		FROM usage_records
		WHERE created_at >= ?
	`

	var sum Summary
	err := s.db.QueryRowContext(ctx, query, since).Scan(
		&sum.Requests, &sum.PromptTokens, &sum.CompletionTokens, &sum.TotalTokens,
	)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "summarize", Err: err}
	}

	return &sum, nil
}

// Recent returns the newest records, most recent first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, request_id, dialect, model, stream, status,
		       prompt_tokens, completion_tokens, total_tokens,
		       duration_ms, COALESCE(user_id, ''), created_at
		FROM usage_records
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "recent", Err: err}
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.Dialect, &rec.Model, &rec.Stream, &rec.Status,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.TotalTokens,
			&rec.DurationMs, &rec.UserID, &rec.CreatedAt,
		); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "scan", Err: err}
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "recent", Err: err}
	}

	return records, nil
}

// Count returns the total number of stored records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM usage_records").Scan(&count)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "count", Err: err}
	}
	return count, nil
}

// DeleteOlderThan removes records created before the cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM usage_records WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "delete_older_than", Err: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "rows_affected", Err: err}
	}
	return deleted, nil
}

// TrimToCount removes the oldest records beyond max.
func (s *SQLiteStore) TrimToCount(ctx context.Context, max int64) (int64, error) {
	query := `
		DELETE FROM usage_records
		WHERE id IN (
			SELECT id FROM usage_records
			ORDER BY created_at DESC
			LIMIT -1 OFFSET ?
		)
	`

	res, err := s.db.ExecContext(ctx, query, max)
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "trim_to_count", Err: err}
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Backend: "sqlite", Op: "rows_affected", Err: err}
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
