// Package history persists batch runs and their per-repository results
// in a SQLite database, so past runs can be reviewed with `gitbatch runs`.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// RunState mirrors the terminal state of a batch job.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateCancelled RunState = "cancelled"
	RunStateAborted   RunState = "aborted"
)

// Run is one recorded batch run.
type Run struct {
	ID          string
	Operation   string
	Root        string
	Parallelism int
	State       RunState
	Total       int
	Succeeded   int
	Failed      int
	Cancelled   int
	StartedAt   time.Time
	FinishedAt  *time.Time
	Error       *string
}

// Result is one repository's outcome within a run.
type Result struct {
	RunID      string
	RepoPath   string
	RepoName   string
	Outcome    string
	ExitCode   int
	Detail     string
	Output     string
	DurationMS int64
}

// Store wraps the SQLite connection with run history operations.
type Store struct {
	conn *sql.DB
}

// Open creates or opens the history database at the given path.
// It enables WAL mode, foreign keys, and runs migrations.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
-- Runs table: one row per batch run
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    operation       TEXT NOT NULL,
    root            TEXT NOT NULL,
    parallelism     INTEGER NOT NULL,
    state           TEXT NOT NULL,
    total           INTEGER NOT NULL DEFAULT 0,
    succeeded       INTEGER NOT NULL DEFAULT 0,
    failed          INTEGER NOT NULL DEFAULT 0,
    cancelled       INTEGER NOT NULL DEFAULT 0,
    started_at      DATETIME NOT NULL,
    finished_at     DATETIME,
    error           TEXT
);

-- Results table: per-repository outcomes within a run
CREATE TABLE IF NOT EXISTS results (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    repo_path       TEXT NOT NULL,
    repo_name       TEXT NOT NULL,
    outcome         TEXT NOT NULL,
    exit_code       INTEGER NOT NULL,
    detail          TEXT,
    output          TEXT,
    duration_ms     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_outcome ON results(run_id, outcome);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// RecordRun inserts a new run in the running state.
func (s *Store) RecordRun(run *Run) error {
	if run.State == "" {
		run.State = RunStateRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO runs (
			id, operation, root, parallelism, state, total,
			succeeded, failed, cancelled, started_at, finished_at, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.conn.Exec(
		query,
		run.ID,
		run.Operation,
		run.Root,
		run.Parallelism,
		run.State,
		run.Total,
		run.Succeeded,
		run.Failed,
		run.Cancelled,
		run.StartedAt,
		run.FinishedAt,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// FinishRun moves a run to a terminal state and stores its counters.
func (s *Store) FinishRun(id string, state RunState, total, succeeded, failed, cancelled int, runErr *string) error {
	query := `
		UPDATE runs
		SET state = ?, total = ?, succeeded = ?, failed = ?, cancelled = ?,
		    finished_at = ?, error = ?
		WHERE id = ?
	`
	result, err := s.conn.Exec(query, state, total, succeeded, failed, cancelled, time.Now(), runErr, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// AppendResult stores one repository's outcome for a run.
func (s *Store) AppendResult(res *Result) error {
	query := `
		INSERT INTO results (
			run_id, repo_path, repo_name, outcome, exit_code,
			detail, output, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.conn.Exec(
		query,
		res.RunID,
		res.RepoPath,
		res.RepoName,
		res.Outcome,
		res.ExitCode,
		res.Detail,
		res.Output,
		res.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to append result: %w", err)
	}
	return nil
}

// GetRun retrieves a run by its ID.
// Returns nil, nil if the run does not exist.
func (s *Store) GetRun(id string) (*Run, error) {
	query := `
		SELECT id, operation, root, parallelism, state, total,
		       succeeded, failed, cancelled, started_at, finished_at, error
		FROM runs
		WHERE id = ?
	`
	run := &Run{}
	err := s.conn.QueryRow(query, id).Scan(
		&run.ID,
		&run.Operation,
		&run.Root,
		&run.Parallelism,
		&run.State,
		&run.Total,
		&run.Succeeded,
		&run.Failed,
		&run.Cancelled,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Error,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
// ULIDs sort chronologically, so ordering by id is ordering by time.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, operation, root, parallelism, state, total,
		       succeeded, failed, cancelled, started_at, finished_at, error
		FROM runs
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.conn.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.Operation,
			&run.Root,
			&run.Parallelism,
			&run.State,
			&run.Total,
			&run.Succeeded,
			&run.Failed,
			&run.Cancelled,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// ResultsForRun returns a run's per-repository results in insertion order.
func (s *Store) ResultsForRun(runID string) ([]*Result, error) {
	query := `
		SELECT run_id, repo_path, repo_name, outcome, exit_code,
		       detail, output, duration_ms
		FROM results
		WHERE run_id = ?
		ORDER BY id
	`
	rows, err := s.conn.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		res := &Result{}
		err := rows.Scan(
			&res.RunID,
			&res.RepoPath,
			&res.RepoName,
			&res.Outcome,
			&res.ExitCode,
			&res.Detail,
			&res.Output,
			&res.DurationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return results, nil
}

// Prune deletes runs older than the given cutoff, cascading to results.
// Returns the number of deleted runs.
func (s *Store) Prune(before time.Time) (int, error) {
	result, err := s.conn.Exec(`DELETE FROM runs WHERE started_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}
