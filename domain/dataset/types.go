// Package dataset defines the versioned dataset model: every mutating step
// in a workflow produces a new immutable on-disk version with its own handle.
package dataset

import (
	"fmt"

	"debias/domain/core"
)

// VersionKind distinguishes how a version entered the store.
type VersionKind string

const (
	// KindOriginal is the untouched upload, kept for restart/undo.
	KindOriginal VersionKind = "original"
	// KindWorking is the mutable lineage head: preprocessing and feature
	// selection write new working versions.
	KindWorking VersionKind = "working"
	// KindCorrected is the output of a correction job.
	KindCorrected VersionKind = "corrected"
)

// Version describes one immutable on-disk dataset file. Handle is the opaque
// identity callers pass around; Path is where the bytes live. Parent links
// the lineage chain back to the original upload.
type Version struct {
	Handle    core.HandleID `json:"handle" db:"handle"`
	Path      string        `json:"path" db:"path"`
	Kind      VersionKind   `json:"kind" db:"kind"`
	Source    string        `json:"source" db:"source"`
	Parent    core.HandleID `json:"parent,omitempty" db:"parent"`
	Rows      int           `json:"rows" db:"rows"`
	Columns   int           `json:"columns" db:"columns"`
	CreatedAt core.Timestamp `json:"created_at" db:"created_at"`
}

// Role is the statistical role assigned to a column.
type Role string

const (
	RoleCategorical Role = "categorical"
	RoleContinuous  Role = "continuous"
)

// ColumnRoles is the caller-declared split of a dataset's columns into
// categorical and continuous. A column appears in at most one list; columns
// in neither list simply have no role and are skipped by the detectors.
type ColumnRoles struct {
	Categorical []string `json:"categorical"`
	Continuous  []string `json:"continuous"`
}

// Validate checks the role assignment against the dataset's actual columns:
// every named column must exist and no column may carry both roles.
func (r ColumnRoles) Validate(columns []string) error {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	seen := make(map[string]Role, len(r.Categorical)+len(r.Continuous))
	for _, c := range r.Categorical {
		if !known[c] {
			return fmt.Errorf("unknown column %q: %w", c, core.ErrColumnNotFound)
		}
		seen[c] = RoleCategorical
	}
	for _, c := range r.Continuous {
		if !known[c] {
			return fmt.Errorf("unknown column %q: %w", c, core.ErrColumnNotFound)
		}
		if seen[c] == RoleCategorical {
			return fmt.Errorf("column %q assigned both roles: %w", c, core.ErrRoleConflict)
		}
		seen[c] = RoleContinuous
	}
	return nil
}

// RoleOf returns the role of a column, or "" when it has none.
func (r ColumnRoles) RoleOf(column string) Role {
	for _, c := range r.Categorical {
		if c == column {
			return RoleCategorical
		}
	}
	for _, c := range r.Continuous {
		if c == column {
			return RoleContinuous
		}
	}
	return ""
}

// Empty reports whether no roles are assigned at all.
func (r ColumnRoles) Empty() bool {
	return len(r.Categorical) == 0 && len(r.Continuous) == 0
}
