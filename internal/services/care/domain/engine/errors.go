package engine

import "errors"

var (
	// ErrCommandRegistryRequired indicates a missing command registry.
	ErrCommandRegistryRequired = errors.New("command registry is required")
	// ErrEventLogRequired indicates an operation that needs the event log.
	ErrEventLogRequired = errors.New("event log is required")
	// ErrStoreRequired indicates neither an event log nor a snapshot store.
	ErrStoreRequired = errors.New("event log or snapshot store is required")
	// ErrPatientIDRequired indicates a missing patient id.
	ErrPatientIDRequired = errors.New("patient id is required")
	// ErrRetriesExhausted indicates every append attempt lost to a concurrent writer.
	ErrRetriesExhausted = errors.New("append retries exhausted")
)

// nonRetryableError marks a failure that happened after events were
// appended. Running the command again would append them twice.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// NonRetryable returns true from IsNonRetryable checks.
func (e *nonRetryableError) NonRetryable() bool { return true }

func wrapNonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

// IsNonRetryable reports whether err, or any error it wraps, must not be
// retried by the caller.
func IsNonRetryable(err error) bool {
	var target interface{ NonRetryable() bool }
	if errors.As(err, &target) {
		return target.NonRetryable()
	}
	return false
}
