// Package registry manages the column role assignments of dataset versions
// and the diagnostic cache keyed on them. Re-classifying a column or moving
// to a new handle invalidates any cached diagnostic that depended on the old
// assignment.
package registry

import (
	"context"
	"log"
	"sync"

	"debias/domain/audit"
	"debias/domain/core"
	"debias/domain/dataset"
	"debias/domain/table"
	"debias/internal/errors"
	"debias/ports"
)

type cacheKey struct {
	handle core.HandleID
	column string
	role   dataset.Role
}

// Registry validates and stores role assignments and caches detector output.
type Registry struct {
	roles ports.RoleRepository

	mu        sync.Mutex
	imbalance map[cacheKey]audit.ImbalanceDiagnostic
	skewness  map[cacheKey]audit.SkewnessDiagnostic
}

// New creates a registry over the given role repository
func New(roles ports.RoleRepository) *Registry {
	return &Registry{
		roles:     roles,
		imbalance: make(map[cacheKey]audit.ImbalanceDiagnostic),
		skewness:  make(map[cacheKey]audit.SkewnessDiagnostic),
	}
}

// SetRoles validates an assignment against the dataset's columns and stores
// it. Overlapping or unknown column names reject the whole assignment;
// nothing is partially applied. A successful store invalidates every cached
// diagnostic for the handle.
func (r *Registry) SetRoles(ctx context.Context, handle core.HandleID, fr *table.Frame, roles dataset.ColumnRoles) error {
	if err := roles.Validate(fr.Columns()); err != nil {
		return errors.WithCode(errors.CodeValidationError, err)
	}
	if err := r.roles.SetRoles(ctx, handle, roles); err != nil {
		return err
	}
	r.invalidateHandle(handle)
	log.Printf("[Registry] Roles set for handle %s: %d categorical, %d continuous",
		handle, len(roles.Categorical), len(roles.Continuous))
	return nil
}

// Roles returns the stored assignment for a handle. Handles without an
// assignment inherit their parent's via the caller; the registry itself does
// not walk lineage.
func (r *Registry) Roles(ctx context.Context, handle core.HandleID) (*dataset.ColumnRoles, error) {
	return r.roles.GetRoles(ctx, handle)
}

func (r *Registry) invalidateHandle(handle core.HandleID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.imbalance {
		if k.handle == handle {
			delete(r.imbalance, k)
		}
	}
	for k := range r.skewness {
		if k.handle == handle {
			delete(r.skewness, k)
		}
	}
}

// CachedImbalance returns a cached diagnostic for (handle, column) if the
// column is still categorical under the current assignment.
func (r *Registry) CachedImbalance(handle core.HandleID, column string) (audit.ImbalanceDiagnostic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.imbalance[cacheKey{handle, column, dataset.RoleCategorical}]
	return d, ok
}

// StoreImbalance caches a diagnostic for (handle, column).
func (r *Registry) StoreImbalance(handle core.HandleID, column string, d audit.ImbalanceDiagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imbalance[cacheKey{handle, column, dataset.RoleCategorical}] = d
}

// CachedSkewness returns a cached diagnostic for (handle, column) if the
// column is still continuous under the current assignment.
func (r *Registry) CachedSkewness(handle core.HandleID, column string) (audit.SkewnessDiagnostic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.skewness[cacheKey{handle, column, dataset.RoleContinuous}]
	return d, ok
}

// StoreSkewness caches a diagnostic for (handle, column).
func (r *Registry) StoreSkewness(handle core.HandleID, column string, d audit.SkewnessDiagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skewness[cacheKey{handle, column, dataset.RoleContinuous}] = d
}
