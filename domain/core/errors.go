package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound       = errors.New("resource not found")
	ErrHandleNotFound = fmt.Errorf("%w: dataset handle", ErrNotFound)
	ErrColumnNotFound = fmt.Errorf("%w: column", ErrNotFound)
	ErrJobNotFound    = fmt.Errorf("%w: correction job", ErrNotFound)

	// Validation errors
	ErrRoleConflict     = errors.New("column assigned to both categorical and continuous")
	ErrWrongRole        = errors.New("column role does not permit this operation")
	ErrInsufficientData = errors.New("insufficient data for statistic")
	ErrConstantColumn   = errors.New("constant column")

	// Correction errors
	ErrUnknownMethod   = errors.New("unknown correction method")
	ErrTransformFailed = errors.New("transform failed")
	ErrSequenceAborted = errors.New("correction sequence aborted")
	ErrJobTimeout      = errors.New("correction job timed out")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
