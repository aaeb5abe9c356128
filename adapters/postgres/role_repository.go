// Package postgres provides sqlx-backed repositories for column roles and
// correction jobs. Used when DATABASE_URL is configured; otherwise the
// in-memory adapters serve the same ports.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"debias/domain/core"
	"debias/domain/dataset"
	"debias/ports"
)

type roleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a postgres role repository
func NewRoleRepository(db *sqlx.DB) ports.RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) SetRoles(ctx context.Context, handle core.HandleID, roles dataset.ColumnRoles) error {
	categoricalJSON, err := json.Marshal(roles.Categorical)
	if err != nil {
		return fmt.Errorf("failed to marshal categorical roles: %w", err)
	}
	continuousJSON, err := json.Marshal(roles.Continuous)
	if err != nil {
		return fmt.Errorf("failed to marshal continuous roles: %w", err)
	}

	query := `INSERT INTO column_roles (handle, categorical, continuous, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (handle) DO UPDATE SET
			categorical = EXCLUDED.categorical,
			continuous = EXCLUDED.continuous,
			updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, handle, categoricalJSON, continuousJSON); err != nil {
		return fmt.Errorf("failed to save column roles: %w", err)
	}
	return nil
}

func (r *roleRepository) GetRoles(ctx context.Context, handle core.HandleID) (*dataset.ColumnRoles, error) {
	query := `SELECT categorical, continuous FROM column_roles WHERE handle = $1`

	var categoricalJSON, continuousJSON []byte
	err := r.db.QueryRowContext(ctx, query, handle).Scan(&categoricalJSON, &continuousJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("roles for handle %s: %w", handle, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get column roles: %w", err)
	}

	var roles dataset.ColumnRoles
	if err := json.Unmarshal(categoricalJSON, &roles.Categorical); err != nil {
		return nil, fmt.Errorf("failed to unmarshal categorical roles: %w", err)
	}
	if err := json.Unmarshal(continuousJSON, &roles.Continuous); err != nil {
		return nil, fmt.Errorf("failed to unmarshal continuous roles: %w", err)
	}
	return &roles, nil
}

func (r *roleRepository) DeleteRoles(ctx context.Context, handle core.HandleID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM column_roles WHERE handle = $1`, handle); err != nil {
		return fmt.Errorf("failed to delete column roles: %w", err)
	}
	return nil
}
