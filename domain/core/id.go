package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// HandleID references one immutable version of a stored dataset.
	HandleID ID
	// JobID identifies a single correction job.
	JobID ID
	// ColumnKey names a column within a dataset version.
	ColumnKey ID
)

// String conversions for domain IDs
func (id HandleID) String() string  { return ID(id).String() }
func (id JobID) String() string     { return ID(id).String() }
func (id ColumnKey) String() string { return ID(id).String() }

// ParseHandleID parses a string into HandleID
func ParseHandleID(s string) (HandleID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("dataset handle cannot be empty")
	}
	return HandleID(s), nil
}

// ParseJobID parses a string into JobID
func ParseJobID(s string) (JobID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("job ID cannot be empty")
	}
	return JobID(s), nil
}
