package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "record not found"
	// ConfigNotFoundMessage describes a missing bot configuration.
	ConfigNotFoundMessage = "bot configuration not found"
)

// Error wraps an underlying error with an HTTP status and a message safe
// to surface to the caller.
type Error struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the underlying error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// New creates a new Error with the provided information.
func New(err error, status int, message string) *Error {
	return &Error{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// ConfigNotFound marks a requested bot configuration id that is absent from
// the registry. This is the one failure class surfaced to the caller as a
// hard error rather than a degraded chat reply.
func ConfigNotFound(configID string) *Error {
	return &Error{
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("%s: %s", ConfigNotFoundMessage, configID),
	}
}

// IsNotFound reports whether err carries a 404-class status.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

// HTTPStatus extracts the HTTP status from err, defaulting to 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
