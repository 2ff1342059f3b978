// Package errors defines the error taxonomy shared by the trip analytics
// core: sentinel errors for each failure class, an AppError wrapper carrying
// caller-facing detail, and the mapping from errors to HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrDataLoad marks malformed or missing source data. Fatal at startup;
	// the process never serves queries after one of these.
	ErrDataLoad = errors.New("data load failed")

	// ErrInvalidQuery marks a caller-supplied query that is malformed or
	// inconsistent (unknown filter key, inverted range). Recovered locally
	// and surfaced to the caller as a rejected call.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrInsufficientData marks a well-formed query whose statistical basis
	// is empty. Not a caller error: results carry explicit zero/null fields.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrIndexUnavailable marks a lexical index that failed to build. The
	// router degrades to numeric-only routing while this is set.
	ErrIndexUnavailable = errors.New("lexical index unavailable")

	ErrTimeout  = errors.New("operation timed out")
	ErrInternal = errors.New("internal error")
)

// AppError pairs a sentinel with a caller-facing message and HTTP status.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// InvalidQuery builds the standard rejection for a malformed query.
func InvalidQuery(format string, args ...any) *AppError {
	return Newf(ErrInvalidQuery, http.StatusBadRequest, format, args...)
}

// HTTPStatusCode maps an error to the status code reported to the caller.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
