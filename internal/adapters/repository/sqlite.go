package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/hoopfuse/internal/domain/model"
	"github.com/okian/hoopfuse/pkg/logger"
	"github.com/okian/hoopfuse/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore persists results in a SQLite database.
type SQLiteStore struct {
	conn *sql.DB
	log  logger.Logger
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	c := newStoreConfig(opts)

	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(c.maxOpenConns)
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &SQLiteStore{conn: conn, log: c.log}
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateStoreRecords(n)
	}
	s.log.Info(ctx, "sqlite store opened", logger.String("path", path))
	return s, nil
}

// Save inserts or replaces a result.
func (s *SQLiteStore) Save(ctx context.Context, r Result) error {
	if err := validate(r); err != nil {
		metrics.RecordStoreOperation("save", "error")
		return fmt.Errorf("save %q: %w", r.JobID, err)
	}
	events := r.Events
	if events == nil {
		events = []model.GameEvent{}
	}
	payload, err := json.Marshal(events)
	if err != nil {
		metrics.RecordStoreOperation("save", "error")
		return fmt.Errorf("encode events: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO job_results(job_id, status, events, error, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.JobID, string(r.Status), string(payload), r.Error, unixNano(r.CreatedAt), unixNano(r.CompletedAt),
	)
	if err != nil {
		metrics.RecordStoreOperation("save", "error")
		return fmt.Errorf("save %q: %w", r.JobID, err)
	}
	metrics.RecordStoreOperation("save", "ok")
	if n, err := s.Count(ctx); err == nil {
		metrics.UpdateStoreRecords(n)
	}
	return nil
}

// Get returns the stored result for a job.
func (s *SQLiteStore) Get(ctx context.Context, jobID string) (Result, error) {
	var (
		r                  Result
		status, payload    string
		created, completed int64
	)
	err := s.conn.QueryRowContext(ctx,
		"SELECT job_id, status, events, error, created_at, completed_at FROM job_results WHERE job_id = ?", jobID,
	).Scan(&r.JobID, &status, &payload, &r.Error, &created, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordStoreOperation("get", "not_found")
		return Result{}, ErrNotFound
	}
	if err != nil {
		metrics.RecordStoreOperation("get", "error")
		return Result{}, fmt.Errorf("get %q: %w", jobID, err)
	}
	if err := json.Unmarshal([]byte(payload), &r.Events); err != nil {
		metrics.RecordStoreOperation("get", "error")
		return Result{}, fmt.Errorf("decode events of %q: %w", jobID, err)
	}
	if len(r.Events) == 0 {
		r.Events = nil
	}
	r.Status = Status(status)
	r.CreatedAt = fromUnixNano(created)
	r.CompletedAt = fromUnixNano(completed)
	metrics.RecordStoreOperation("get", "ok")
	return r, nil
}

// Count returns the number of stored results.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(1) FROM job_results").Scan(&n); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// Close closes the underlying connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
