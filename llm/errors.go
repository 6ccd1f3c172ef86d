package llm

import (
	"errors"
	"fmt"

	"github.com/c360studio/casegen/llm/schema"
)

// Transport classification used by the client's retry loop.

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError represents a permanent error that should not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// Gateway error taxonomy. These are the only errors the gateway returns and
// their messages are safe to show to end users.

// ServiceError reports that the completion backend could not be reached,
// rejected the request, or the caller's context ended first.
type ServiceError struct {
	Intent string
	Err    error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("the completion service failed to process the request (check credentials and input size): %v", e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// MalformedResponseError reports that the backend answered with text that
// could not be parsed as JSON.
type MalformedResponseError struct {
	Intent string
	// Content is the raw completion, truncated for logging.
	Content string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return "the AI returned a malformed response; please retry"
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// InvalidShapeError reports a parsed response that does not match the
// requested shape.
type InvalidShapeError struct {
	Intent string
	Err    error
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("the AI response did not have the expected structure: %v", e.Err)
}

func (e *InvalidShapeError) Unwrap() error {
	return e.Err
}

// Violations returns the schema violations behind the error, if any.
func (e *InvalidShapeError) Violations() []schema.Violation {
	var verr *schema.ValidationError
	if errors.As(e.Err, &verr) {
		return verr.Violations
	}
	return nil
}

// IsServiceError reports whether err is a *ServiceError.
func IsServiceError(err error) bool {
	var target *ServiceError
	return errors.As(err, &target)
}

// IsMalformedResponse reports whether err is a *MalformedResponseError.
func IsMalformedResponse(err error) bool {
	var target *MalformedResponseError
	return errors.As(err, &target)
}

// IsInvalidShape reports whether err is an *InvalidShapeError.
func IsInvalidShape(err error) bool {
	var target *InvalidShapeError
	return errors.As(err, &target)
}
