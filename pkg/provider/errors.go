package provider

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TransientError is a retryable downstream failure: network errors,
// rate limiting, 5xx-style responses.
type TransientError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
	Err        error
}

// Error returns the error message.
func (e *TransientError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("transient provider error (HTTP %d): %s (retry after %v)", e.Status, e.Message, e.RetryAfter)
	}
	if e.Status > 0 {
		return fmt.Sprintf("transient provider error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("transient provider error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRetryable marks the error retryable for retry policies.
func (e *TransientError) IsRetryable() bool {
	return true
}

// PermanentError is a non-retryable downstream failure: malformed
// requests, auth failures, 4xx-style responses.
type PermanentError struct {
	Status  int
	Message string
	Err     error
}

// Error returns the error message.
func (e *PermanentError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("permanent provider error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("permanent provider error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *PermanentError) Unwrap() error {
	return e.Err
}

// IsRetryable marks the error non-retryable for retry policies.
func (e *PermanentError) IsRetryable() bool {
	return false
}

// IsTransient checks if an error is a transient provider error.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent checks if an error is a permanent provider error.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ClassifyStatus converts a non-2xx HTTP status into the matching
// provider error kind.
func ClassifyStatus(status int, message string, retryAfter time.Duration) error {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return &TransientError{Status: status, Message: message, RetryAfter: retryAfter}
	default:
		return &PermanentError{Status: status, Message: message}
	}
}
