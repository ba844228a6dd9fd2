// Package domain defines the query model, result types, and error taxonomy
// for the semantic-layer client.
package domain

import (
	"fmt"
	"time"
)

// ValidationError indicates a malformed query or credentials. It is raised
// before any network call is attempted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// FatalError indicates a non-retryable server rejection: a 4xx status other
// than 429, or a response body that does not match the result schema.
type FatalError struct {
	Status int    // HTTP status code, 0 when the fault is a schema mismatch
	Body   string // response body excerpt
	Reason string // short classification, e.g. "bad request", "malformed response"
}

func (e *FatalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("query failed: %s (status %d): %s", e.Reason, e.Status, e.Body)
	}
	return fmt.Sprintf("query failed: %s: %s", e.Reason, e.Body)
}

// TimeoutError indicates the polling budget was exhausted before the server
// produced a terminal response.
type TimeoutError struct {
	Attempts   int
	Elapsed    time.Duration
	LastStatus int    // status of the last response seen, 0 if none
	LastBody   string // body excerpt of the last response seen
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query not ready after %d attempts in %s (last status %d): %s",
		e.Attempts, e.Elapsed.Round(time.Millisecond), e.LastStatus, e.LastBody)
}

// CancelledError indicates the caller cancelled the execution mid-request or
// mid-wait.
type CancelledError struct {
	Err error // the underlying context error
}

func (e *CancelledError) Error() string { return fmt.Sprintf("query cancelled: %v", e.Err) }

func (e *CancelledError) Unwrap() error { return e.Err }
