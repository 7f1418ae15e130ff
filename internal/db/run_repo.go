package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultRunListLimit = 50

type RunRepo struct {
	db *sql.DB
}

func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

func (r *RunRepo) Create(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run is required")
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id is required")
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = nowUTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO runs (id, lrc_path, title, sequence_id, status, total, fired, error_count, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.ID, run.LRCPath, run.Title, run.SequenceID, run.Status, run.Total, run.Fired, run.ErrorCount,
		formatTimestamp(run.StartedAt), formatTimestampOrEmpty(run.FinishedAt))
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// Finish records how a run ended.
func (r *RunRepo) Finish(ctx context.Context, runID string, status string, fired int, finishedAt time.Time) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return fmt.Errorf("status is required")
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE runs
SET status = ?, fired = ?, finished_at = ?
WHERE id = ?
`, status, fired, formatTimestamp(finishedAt), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found")
	}
	return nil
}

// RecordError stores a per-record failure and bumps the run's error count.
func (r *RunRepo) RecordError(ctx context.Context, item *RunError) error {
	if item == nil {
		return fmt.Errorf("run error is required")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = nowUTC()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record run error: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
INSERT INTO run_errors (run_id, record_index, kind, message, created_at)
VALUES (?, ?, ?, ?, ?)
`, item.RunID, item.RecordIndex, item.Kind, item.Message, formatTimestamp(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert run error: %w", err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("run error id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET error_count = error_count + 1 WHERE id = ?`, item.RunID); err != nil {
		return fmt.Errorf("bump run error count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run error: %w", err)
	}
	return nil
}

func (r *RunRepo) Get(ctx context.Context, runID string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, lrc_path, title, sequence_id, status, total, fired, error_count, started_at, finished_at
FROM runs
WHERE id = ?
`, runID)
	item, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return item, nil
}

// List returns the most recent runs first. A non-positive limit uses the
// default page size.
func (r *RunRepo) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, lrc_path, title, sequence_id, status, total, fired, error_count, started_at, finished_at
FROM runs
ORDER BY started_at DESC, id
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	items := make([]*Run, 0)
	for rows.Next() {
		item, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return items, nil
}

func (r *RunRepo) ListErrors(ctx context.Context, runID string) ([]*RunError, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, run_id, record_index, kind, message, created_at
FROM run_errors
WHERE run_id = ?
ORDER BY id
`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run errors: %w", err)
	}
	defer rows.Close()

	items := make([]*RunError, 0)
	for rows.Next() {
		var item RunError
		var createdAtRaw string
		if err := rows.Scan(&item.ID, &item.RunID, &item.RecordIndex, &item.Kind, &item.Message, &createdAtRaw); err != nil {
			return nil, fmt.Errorf("scan run error: %w", err)
		}
		if item.CreatedAt, err = parseTimestamp(createdAtRaw); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run errors: %w", err)
	}
	return items, nil
}

// MarkInterrupted closes out runs left in the running state by a previous
// process that exited without finishing them.
func (r *RunRepo) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE runs SET status = ?, finished_at = ?
WHERE status = ?
`, RunStatusStopped, formatTimestamp(nowUTC()), RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var item Run
	var startedAtRaw, finishedAtRaw string
	if err := row.Scan(&item.ID, &item.LRCPath, &item.Title, &item.SequenceID, &item.Status,
		&item.Total, &item.Fired, &item.ErrorCount, &startedAtRaw, &finishedAtRaw); err != nil {
		return nil, err
	}
	var err error
	if item.StartedAt, err = parseTimestamp(startedAtRaw); err != nil {
		return nil, err
	}
	if item.FinishedAt, err = parseOptionalTimestamp(finishedAtRaw); err != nil {
		return nil, err
	}
	return &item, nil
}
