// Package errors holds the error sentinels shared by the storage backends,
// the indexing engine and the HTTP surface, plus their HTTP status mapping.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDocumentNotFound means a store was asked for an id it never issued.
	ErrDocumentNotFound   = errors.New("document not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrConsistencyDrift   = errors.New("document stored but not fully indexed")
	ErrInvalidInput       = errors.New("invalid input")
)

// StatusError pins an explicit HTTP status on an error.
type StatusError struct {
	Err    error
	Status int
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// WithStatus attaches status to err for HTTPStatusCode.
func WithStatus(err error, status int) error {
	if err == nil {
		return nil
	}
	return &StatusError{Err: err, Status: status}
}

// Invalid wraps a client mistake in ErrInvalidInput.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Unavailable marks err as a backend outage while keeping the cause, so
// callers can match ErrStorageUnavailable and the driver error alike.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

func HTTPStatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrConsistencyDrift):
		return http.StatusMultiStatus
	}
	// ErrDocumentNotFound lands here: the engine only asks for ids it was
	// given, so a miss is a server-side inconsistency.
	return http.StatusInternalServerError
}
