package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/obstacle.report/internal/lidar/pipeline"
)

// Run status values.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one pass of the detection pipeline over a frame source.
type Run struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt *int64    `json:"finished_at,omitempty"`
	Source     string    `json:"source"`
	ParamsJSON []byte    `json:"params_json"`
	Status     string    `json:"status"`
	Frames     int       `json:"frames"`
	Failed     int       `json:"failed"`
	Obstacles  int       `json:"obstacles"`
	Error      string    `json:"error,omitempty"`
}

// RunStore persists run rows.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// InsertRun creates a run in the running state. If run.RunID is empty a new
// UUID is generated; a zero CreatedAt is set to now.
func (s *RunStore) InsertRun(ctx context.Context, run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	if len(run.ParamsJSON) == 0 {
		run.ParamsJSON = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO detection_runs (run_id, created_at, source, params_json, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.RunID, run.CreatedAt.UnixNano(), run.Source, string(run.ParamsJSON), run.Status)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// CompleteRun records the final counts of a run. A non-nil runErr marks the
// run failed and keeps its message.
func (s *RunStore) CompleteRun(ctx context.Context, runID string, summary pipeline.RunSummary, runErr error) error {
	status, msg := RunCompleted, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE detection_runs
		SET finished_at = ?, status = ?, frames = ?, failed = ?, obstacles = ?, error = ?
		WHERE run_id = ?
	`, time.Now().UnixNano(), status, summary.Frames, summary.Failed, summary.Obstacles, nullString(msg), runID)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete run rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("complete run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// GetRun loads one run. It returns sql.ErrNoRows (wrapped) when absent.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, created_at, finished_at, source, params_json, status,
		       frames, failed, obstacles, error
		FROM detection_runs WHERE run_id = ?
	`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return run, err
}

// ListRuns returns the most recent runs first, at most limit of them.
func (s *RunStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, finished_at, source, params_json, status,
		       frames, failed, obstacles, error
		FROM detection_runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	r := &Run{}
	var createdAt int64
	var finishedAt sql.NullInt64
	var params string
	var runErr sql.NullString

	err := row.Scan(&r.RunID, &createdAt, &finishedAt, &r.Source, &params, &r.Status,
		&r.Frames, &r.Failed, &r.Obstacles, &runErr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	r.CreatedAt = time.Unix(0, createdAt)
	if finishedAt.Valid {
		r.FinishedAt = &finishedAt.Int64
	}
	r.ParamsJSON = []byte(params)
	if runErr.Valid {
		r.Error = runErr.String
	}
	return r, nil
}
