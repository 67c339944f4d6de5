// Package history records completed test runs in a SQLite metastore. The
// run state itself is never persisted; history only indexes the durable
// report files.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
)

// Run is one completed pipeline invocation.
type Run struct {
	ID         int64     `json:"id"`
	ObjectName string    `json:"object_name"`
	Kind       string    `json:"kind"` // procedure or pipe
	Status     string    `json:"status"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Errors     int       `json:"errors"`
	Skipped    int       `json:"skipped"`
	ReportPath string    `json:"report_path"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Store is the run-history repository.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the metastore at path and applies pending
// migrations. WAL mode and a busy timeout keep the single writer safe
// against concurrent scheduled runs.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("goose up: %w", err)
	}

	return &Store{db: db, logger: logger.With("component", "history")}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a completed run and fills in its assigned ID.
func (s *Store) Record(ctx context.Context, run *Run) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (object_name, kind, status, passed, failed, errors, skipped, report_path, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ObjectName, run.Kind, run.Status,
		run.Passed, run.Failed, run.Errors, run.Skipped,
		run.ReportPath, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	run.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("record run id: %w", err)
	}
	s.logger.Info("run recorded", "object", run.ObjectName, "kind", run.Kind, "status", run.Status)
	return nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, object_name, kind, status, passed, failed, errors, skipped, report_path, started_at, finished_at
		FROM runs ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ObjectName, &r.Kind, &r.Status,
			&r.Passed, &r.Failed, &r.Errors, &r.Skipped,
			&r.ReportPath, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
