package ports

import (
	"context"

	"debias/domain/core"
	"debias/domain/dataset"
)

// RoleRepository persists column role assignments per dataset handle
type RoleRepository interface {
	SetRoles(ctx context.Context, handle core.HandleID, roles dataset.ColumnRoles) error
	GetRoles(ctx context.Context, handle core.HandleID) (*dataset.ColumnRoles, error)
	DeleteRoles(ctx context.Context, handle core.HandleID) error
}
