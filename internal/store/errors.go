package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is a generic version of the entity-specific not found
	// errors (e.g., ErrMessageNotFound, ErrTaskLogNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a task log with the same task ID).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// Entity-specific "not found" errors

	// ErrMessageNotFound indicates that the requested message does not exist in the store.
	ErrMessageNotFound = fmt.Errorf("%w: message", ErrNotFound)

	// ErrTaskLogNotFound indicates that the requested task log does not exist in the store.
	ErrTaskLogNotFound = fmt.Errorf("%w: task log", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrTaskIDExists indicates that a task log with the given queue task ID
	// already exists. Task IDs are unique per execution.
	ErrTaskIDExists = fmt.Errorf("%w: task ID", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
// This includes the generic ErrDuplicate and all entity-specific duplicate errors.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
