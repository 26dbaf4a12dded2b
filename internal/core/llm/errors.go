package llm

import (
	"errors"
	"fmt"
)

// InferenceError classifies a failed inference call. Transient failures
// (rate limited / overloaded) may be retried; fatal ones never succeed on
// retry and are recorded against the page immediately.
type InferenceError struct {
	Transient bool
	Detail    string
	Err       error
}

func (e *InferenceError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("inference %s failure: %s: %v", kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("inference %s failure: %s", kind, e.Detail)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// TransientError wraps a retryable failure.
func TransientError(detail string, err error) *InferenceError {
	return &InferenceError{Transient: true, Detail: detail, Err: err}
}

// FatalError wraps a failure that retrying cannot fix.
func FatalError(detail string, err error) *InferenceError {
	return &InferenceError{Transient: false, Detail: detail, Err: err}
}

// IsTransient reports whether err is a retryable inference failure.
func IsTransient(err error) bool {
	var ie *InferenceError
	return errors.As(err, &ie) && ie.Transient
}
