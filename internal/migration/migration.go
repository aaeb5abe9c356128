package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"debias/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createColumnRolesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create column_roles table")
	}

	if err := r.createCorrectionJobsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create correction_jobs table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createColumnRolesTable(ctx context.Context, db *sqlx.DB) error {
	query := `CREATE TABLE IF NOT EXISTS column_roles (
		handle TEXT PRIMARY KEY,
		categorical JSONB NOT NULL DEFAULT '[]',
		continuous JSONB NOT NULL DEFAULT '[]',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createCorrectionJobsTable(ctx context.Context, db *sqlx.DB) error {
	query := `CREATE TABLE IF NOT EXISTS correction_jobs (
		id TEXT PRIMARY KEY,
		input_handle TEXT NOT NULL,
		output_handle TEXT,
		target_column TEXT NOT NULL,
		method TEXT NOT NULL,
		threshold DOUBLE PRECISION,
		state TEXT NOT NULL,
		error_message TEXT,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ
	)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_correction_jobs_input_handle ON correction_jobs(input_handle)`,
		`CREATE INDEX IF NOT EXISTS idx_correction_jobs_output_handle ON correction_jobs(output_handle)`,
		`CREATE INDEX IF NOT EXISTS idx_correction_jobs_state ON correction_jobs(state)`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}
