package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"debias/domain/audit"
	"debias/domain/core"
	"debias/ports"
)

type jobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a postgres job repository
func NewJobRepository(db *sqlx.DB) ports.JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, job *audit.CorrectionJob) error {
	query := `INSERT INTO correction_jobs (
		id, input_handle, output_handle, target_column, method, threshold,
		state, error_message, started_at, finished_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.InputHandle, job.OutputHandle, job.TargetColumn, job.Method,
		job.Threshold, job.State, job.Error,
		nullableTime(job.StartedAt), nullableTime(job.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create correction job: %w", err)
	}
	return nil
}

func (r *jobRepository) Update(ctx context.Context, job *audit.CorrectionJob) error {
	query := `UPDATE correction_jobs SET
		output_handle = $2, state = $3, error_message = $4, finished_at = $5
	WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		job.ID, job.OutputHandle, job.State, job.Error, nullableTime(job.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update correction job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", job.ID, core.ErrJobNotFound)
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id core.JobID) (*audit.CorrectionJob, error) {
	query := `SELECT id, input_handle, COALESCE(output_handle, '') as output_handle,
		target_column, method, threshold, state, COALESCE(error_message, '') as error_message,
		started_at, finished_at
	FROM correction_jobs WHERE id = $1`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("job %s: %w", id, core.ErrJobNotFound)
		}
		return nil, fmt.Errorf("failed to get correction job: %w", err)
	}
	return job, nil
}

func (r *jobRepository) ListByHandle(ctx context.Context, handle core.HandleID) ([]*audit.CorrectionJob, error) {
	query := `SELECT id, input_handle, COALESCE(output_handle, '') as output_handle,
		target_column, method, threshold, state, COALESCE(error_message, '') as error_message,
		started_at, finished_at
	FROM correction_jobs
	WHERE input_handle = $1 OR output_handle = $1
	ORDER BY started_at ASC`

	rows, err := r.db.QueryContext(ctx, query, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to list correction jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*audit.CorrectionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan correction job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*audit.CorrectionJob, error) {
	var job audit.CorrectionJob
	var threshold sql.NullFloat64
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.InputHandle, &job.OutputHandle, &job.TargetColumn,
		&job.Method, &threshold, &job.State, &job.Error, &startedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	if threshold.Valid {
		v := threshold.Float64
		job.Threshold = &v
	}
	if startedAt.Valid {
		job.StartedAt = core.NewTimestamp(startedAt.Time)
	}
	if finishedAt.Valid {
		job.FinishedAt = core.NewTimestamp(finishedAt.Time)
	}
	return &job, nil
}

func nullableTime(t core.Timestamp) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.Time()
}
