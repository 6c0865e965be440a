// Package errors provides structured error handling with context propagation
// and a mapping from error category to how the dial surface reacts.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error for metrics and UI handling.
type ErrorType string

const (
	// TypeNotFound indicates the config file or the named control entry is absent.
	TypeNotFound ErrorType = "not_found"
	// TypeIO indicates malformed JSON or a filesystem failure.
	TypeIO ErrorType = "io"
	// TypeValidation indicates a user action with unmet preconditions.
	TypeValidation ErrorType = "validation"
	// TypePrecondition indicates a latched environment problem (missing task or script).
	TypePrecondition ErrorType = "precondition"
	// TypeLaunch indicates spawning the external process or helper failed.
	TypeLaunch ErrorType = "launch"
)

// Disposition is how an error surfaces on the device.
type Disposition int

const (
	// DispositionSilent renders a neutral empty state, never an error.
	DispositionSilent Disposition = iota
	// DispositionLog logs the failure and leaves the prior display untouched.
	DispositionLog
	// DispositionAlert flashes the device alert cue and reverts state.
	DispositionAlert
	// DispositionLatch shows a persistent error visual and blocks edits.
	DispositionLatch
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Disposition returns how this error category surfaces on the device.
func (e *Error) Disposition() Disposition {
	switch e.Type {
	case TypeNotFound:
		return DispositionSilent
	case TypeValidation:
		return DispositionAlert
	case TypePrecondition:
		return DispositionLatch
	case TypeIO, TypeLaunch:
		return DispositionLog
	default:
		return DispositionLog
	}
}

// NotFound creates a not-found error (rendered as a neutral empty state).
func NotFound(message string) *Error {
	return &Error{
		Type:    TypeNotFound,
		Message: message,
		Context: make(map[string]any),
	}
}

// IO creates a parse or filesystem error.
func IO(message string, cause error) *Error {
	return &Error{
		Type:    TypeIO,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// Validation creates a validation rejection (alert cue, nothing persisted).
func Validation(message string) *Error {
	return &Error{
		Type:    TypeValidation,
		Message: message,
		Context: make(map[string]any),
	}
}

// Precondition creates a latched precondition failure.
func Precondition(message string) *Error {
	return &Error{
		Type:    TypePrecondition,
		Message: message,
		Context: make(map[string]any),
	}
}

// Launch creates a process-launch failure (logged only, no retry).
func Launch(message string, cause error) *Error {
	return &Error{
		Type:    TypeLaunch,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an IO error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return IO("unexpected error", err)
}
