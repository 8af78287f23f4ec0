package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, store.ErrTaskLogNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrTaskIDExists),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrEmptyMessageContent),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Not found errors
	case errors.Is(err, store.ErrMessageNotFound):
		return "Message not found"

	case errors.Is(err, store.ErrTaskLogNotFound):
		return "Task log not found"

	// Conflict errors
	case errors.Is(err, store.ErrTaskIDExists):
		return "Task ID already exists"

	// Bad request errors
	case errors.Is(err, domain.ErrEmptyMessageContent):
		return "Message content cannot be empty"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	// Default case for unknown errors
	default:
		return "An unexpected error occurred"
	}
}

// errInvalidQueryParam builds the client-facing error for a query
// parameter that failed to parse.
func errInvalidQueryParam(name string) error {
	return fmt.Errorf("invalid value for query parameter %q", name)
}
