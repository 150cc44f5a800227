// Package store persists transform runs and their records in PostgreSQL.
//
// Each run gets a row in grid_runs; every emitted record is copied into
// grid_records with its source line, the mapped record and the merged context.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/gridmap/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

const createRunsTable = `CREATE TABLE IF NOT EXISTS grid_runs (
	id          uuid PRIMARY KEY,
	pipeline    text NOT NULL,
	status      text NOT NULL,
	rows        integer NOT NULL DEFAULT 0,
	issues      integer NOT NULL DEFAULT 0,
	duration_ms bigint NOT NULL DEFAULT 0,
	error       text,
	started_at  timestamptz NOT NULL DEFAULT now(),
	finished_at timestamptz
)`

const createRecordsTable = `CREATE TABLE IF NOT EXISTS grid_records (
	run_id  uuid NOT NULL REFERENCES grid_runs(id) ON DELETE CASCADE,
	line    integer NOT NULL,
	record  jsonb NOT NULL,
	context jsonb NOT NULL,
	PRIMARY KEY (run_id, line)
)`

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var recordColumns = []string{"run_id", "line", "record", "context"}

// ErrRunNotFound is returned when a run id has no grid_runs row.
var ErrRunNotFound = errors.New("run not found")

// Run is one grid_runs row.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Pipeline   string     `json:"pipeline"`
	Status     string     `json:"status"`
	Rows       int        `json:"rows"`
	Issues     int        `json:"issues"`
	Duration   int64      `json:"duration_ms"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Store reads and writes runs.
type Store struct {
	db DBTX
}

// New returns a Store backed by db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createRunsTable, createRecordsTable} {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// BeginRun records a new running run and returns its id.
func (s *Store) BeginRun(ctx context.Context, pipeline string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.Exec(ctx,
		`INSERT INTO grid_runs (id, pipeline, status) VALUES ($1, $2, $3)`,
		id, pipeline, StatusRunning)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// WriteRecords copies results into grid_records.
func (s *Store) WriteRecords(ctx context.Context, runID uuid.UUID, results []core.Result) (int64, error) {
	if len(results) == 0 {
		return 0, nil
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{"grid_records"}, recordColumns,
		pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
			r := results[i]
			return []any{runID, r.Line, r.Record, r.Context}, nil
		}))
	if err != nil {
		return n, fmt.Errorf("write records: %w", err)
	}
	return n, nil
}

// FinishRun stores the final stats. A non-nil runErr marks the run failed.
func (s *Store) FinishRun(ctx context.Context, runID uuid.UUID, stats core.Stats, runErr error) error {
	status := StatusCompleted
	var msg *string
	if runErr != nil {
		status = StatusFailed
		text := runErr.Error()
		msg = &text
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE grid_runs
		    SET status = $2, rows = $3, issues = $4, duration_ms = $5, error = $6, finished_at = now()
		  WHERE id = $1`,
		runID, status, stats.Rows, stats.Issues, stats.Duration.Milliseconds(), msg)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun loads one run.
func (s *Store) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var r Run
	err := s.db.QueryRow(ctx,
		`SELECT id, pipeline, status, rows, issues, duration_ms, error, started_at, finished_at
		   FROM grid_runs WHERE id = $1`, runID).
		Scan(&r.ID, &r.Pipeline, &r.Status, &r.Rows, &r.Issues, &r.Duration, &r.Error, &r.StartedAt, &r.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}
