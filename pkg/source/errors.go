package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by page sources.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// StatusError reports a non-200 response from an HTTP source.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http source returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("http source returned status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status is transient. Server errors and
// 429 Too Many Requests are; other client errors are not.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// DefaultRetryable decides whether a fetch error is worth another attempt.
// Context cancellation and permanent HTTP statuses are not.
func DefaultRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	return true
}
