package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lakemerge/internal/domain"
)

// Compile-time check.
var _ domain.JobRunRepository = (*RunRepo)(nil)

// RunRepo implements domain.JobRunRepository on the SQLite metastore.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a RunRepo on the write pool.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// CreateRun inserts a new job run and returns it with ID and CreatedAt set.
func (r *RunRepo) CreateRun(ctx context.Context, run *domain.JobRun) (*domain.JobRun, error) {
	out := *run
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now().UTC()
	if out.Status == "" {
		out.Status = domain.RunStatusPending
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_name, status, trigger_type, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		out.ID, out.JobName, out.Status, out.TriggerType, nullTime(out.StartedAt), out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create job run: %w", err)
	}
	return &out, nil
}

// FinishRun records a run's terminal status, stats, and timestamps.
func (r *RunRepo) FinishRun(ctx context.Context, run *domain.JobRun) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_runs
		SET status = ?, rows_read = ?, rows_written = ?, inserted = ?, updated = ?,
		    unchanged = ?, started_at = ?, finished_at = ?, error_message = ?
		WHERE id = ?`,
		run.Status, run.Stats.RowsRead, run.Stats.RowsWritten, run.Stats.Inserted,
		run.Stats.Updated, run.Stats.Unchanged,
		nullTime(run.StartedAt), nullTime(run.FinishedAt), nullString(run.ErrorMessage),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish job run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("job run %q not found", run.ID)
	}
	return nil
}

// GetRun returns a job run by ID.
func (r *RunRepo) GetRun(ctx context.Context, id string) (*domain.JobRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, job_name, status, trigger_type, rows_read, rows_written,
		       inserted, updated, unchanged, started_at, finished_at, error_message, created_at
		FROM job_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("job run %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job run: %w", err)
	}
	return run, nil
}

// ListRuns returns job runs matching the filter, newest first.
func (r *RunRepo) ListRuns(ctx context.Context, filter domain.JobRunFilter) ([]domain.JobRun, error) {
	jobName := ""
	if filter.JobName != nil {
		jobName = *filter.JobName
	}
	status := ""
	if filter.Status != nil {
		status = *filter.Status
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_name, status, trigger_type, rows_read, rows_written,
		       inserted, updated, unchanged, started_at, finished_at, error_message, created_at
		FROM job_runs
		WHERE (? = '' OR job_name = ?) AND (? = '' OR status = ?)
		ORDER BY created_at DESC
		LIMIT ?`,
		jobName, jobName, status, status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list job runs: %w", err)
	}
	defer rows.Close()

	var out []domain.JobRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.JobRun, error) {
	var run domain.JobRun
	var startedAt, finishedAt sql.NullTime
	var errMsg sql.NullString
	err := s.Scan(
		&run.ID, &run.JobName, &run.Status, &run.TriggerType,
		&run.Stats.RowsRead, &run.Stats.RowsWritten,
		&run.Stats.Inserted, &run.Stats.Updated, &run.Stats.Unchanged,
		&startedAt, &finishedAt, &errMsg, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	return &run, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
