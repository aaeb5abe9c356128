// Package memory provides in-process repository implementations used when no
// DATABASE_URL is configured. State lives for the life of the process.
package memory

import (
	"context"
	"fmt"
	"sync"

	"debias/domain/core"
	"debias/domain/dataset"
	"debias/ports"
)

type roleRepository struct {
	mu    sync.RWMutex
	roles map[core.HandleID]dataset.ColumnRoles
}

// NewRoleRepository creates an in-memory role repository
func NewRoleRepository() ports.RoleRepository {
	return &roleRepository{roles: make(map[core.HandleID]dataset.ColumnRoles)}
}

func (r *roleRepository) SetRoles(ctx context.Context, handle core.HandleID, roles dataset.ColumnRoles) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[handle] = dataset.ColumnRoles{
		Categorical: append([]string(nil), roles.Categorical...),
		Continuous:  append([]string(nil), roles.Continuous...),
	}
	return nil
}

func (r *roleRepository) GetRoles(ctx context.Context, handle core.HandleID) (*dataset.ColumnRoles, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles, ok := r.roles[handle]
	if !ok {
		return nil, fmt.Errorf("roles for handle %s: %w", handle, core.ErrNotFound)
	}
	out := dataset.ColumnRoles{
		Categorical: append([]string(nil), roles.Categorical...),
		Continuous:  append([]string(nil), roles.Continuous...),
	}
	return &out, nil
}

func (r *roleRepository) DeleteRoles(ctx context.Context, handle core.HandleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.roles, handle)
	return nil
}
