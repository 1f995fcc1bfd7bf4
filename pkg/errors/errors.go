// Package errors defines the error taxonomy shared by the botsmith
// orchestration packages. Fatal error types abort the run; everything else is
// recorded into per-resource outcomes and surfaced in the final summary.
package errors

import (
	"errors"
	"fmt"
)

// Error types
const (
	// ErrInvalidArgument is returned when an invalid argument is provided
	ErrInvalidArgument = "invalid_argument"

	// ErrAuthExhausted is returned when no authentication strategy or scope
	// produced a usable token. Fatal for the run.
	ErrAuthExhausted = "auth_exhausted"

	// ErrEnvironmentNotFound is returned when no resolution strategy,
	// including the URL-derived fallback, produced a plausible environment
	// identifier. Fatal for the run.
	ErrEnvironmentNotFound = "environment_not_found"

	// ErrActionExhausted is returned when every candidate endpoint for a
	// state-changing action failed. Non-fatal; recorded per resource.
	ErrActionExhausted = "action_exhausted"

	// ErrTransport is returned when there is an error with the underlying
	// HTTP transport
	ErrTransport = "transport"
)

// Error represents an error in the application
type Error struct {
	// Type is the error type
	Type string

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewInvalidArgumentError creates a new invalid argument error
func NewInvalidArgumentError(message string, cause error) *Error {
	return NewError(ErrInvalidArgument, message, cause)
}

// NewAuthExhaustedError creates a new authentication exhausted error
func NewAuthExhaustedError(message string, cause error) *Error {
	return NewError(ErrAuthExhausted, message, cause)
}

// NewEnvironmentNotFoundError creates a new environment not found error
func NewEnvironmentNotFoundError(message string, cause error) *Error {
	return NewError(ErrEnvironmentNotFound, message, cause)
}

// NewActionExhaustedError creates a new action exhausted error
func NewActionExhaustedError(message string, cause error) *Error {
	return NewError(ErrActionExhausted, message, cause)
}

// NewTransportError creates a new transport error
func NewTransportError(message string, cause error) *Error {
	return NewError(ErrTransport, message, cause)
}

// isType checks if the error (or anything it wraps) is an *Error of the given type
func isType(err error, errorType string) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errorType
}

// IsInvalidArgument checks if the error is an invalid argument error
func IsInvalidArgument(err error) bool {
	return isType(err, ErrInvalidArgument)
}

// IsAuthExhausted checks if the error is an authentication exhausted error
func IsAuthExhausted(err error) bool {
	return isType(err, ErrAuthExhausted)
}

// IsEnvironmentNotFound checks if the error is an environment not found error
func IsEnvironmentNotFound(err error) bool {
	return isType(err, ErrEnvironmentNotFound)
}

// IsActionExhausted checks if the error is an action exhausted error
func IsActionExhausted(err error) bool {
	return isType(err, ErrActionExhausted)
}

// IsTransport checks if the error is a transport error
func IsTransport(err error) bool {
	return isType(err, ErrTransport)
}

// IsFatal reports whether the error should abort the remaining run. Only
// authentication exhaustion and environment resolution failure are fatal;
// per-resource action failures are reported but do not fail the run.
func IsFatal(err error) bool {
	return IsAuthExhausted(err) || IsEnvironmentNotFound(err) || IsInvalidArgument(err)
}
