package svcrun

import (
	"errors"
	"fmt"
)

// Common errors returned by lifecycle operations
var (
	// ErrDaemonStartTimeout indicates supervisord never bound its control
	// port within the configured timeout. This is the only fatal condition
	// in the package: callers must not issue control commands after it.
	ErrDaemonStartTimeout = errors.New("svcrun: supervisord start timeout")

	// ErrPortExhausted indicates the upward port search ran out of ports
	ErrPortExhausted = errors.New("svcrun: no available port")

	// ErrNoService indicates a command that requires a service name got none
	ErrNoService = errors.New("svcrun: no service name provided")

	// ErrWaitTimeout indicates a bounded file or port wait expired
	ErrWaitTimeout = errors.New("svcrun: wait timeout")
)

// CtlError represents an error from a control or lifecycle operation
type CtlError struct {
	// Op is the action that failed
	Op Action
	// Path is the file path or target involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *CtlError) Error() string {
	return fmt.Sprintf("svcrun %s %q: %v", e.Op.String(), e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *CtlError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors from teardown operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
