// Package zerrors provides the structured error type used across zmem.
//
// Every error that crosses a package boundary in the engine, store, or
// tool-server layers should be a *Error so callers can branch on Code
// instead of matching strings.
package zerrors

import "fmt"

// Code classifies an error into one of the taxonomy buckets the engine
// and MCP surface use to decide how to report and whether to retry.
type Code string

const (
	// Validation indicates malformed or out-of-range caller input.
	Validation Code = "VALIDATION"
	// NotFound indicates the referenced memory item or chunk does not exist.
	NotFound Code = "NOT_FOUND"
	// Conflict indicates a concurrent mutation or state invariant violation.
	Conflict Code = "CONFLICT"
	// Embedding indicates an embedding provider failure.
	Embedding Code = "EMBEDDING"
	// Database indicates a metadata or vector store failure.
	Database Code = "DATABASE"
)

// Error is the structured error type for zmem.
type Error struct {
	Code      Code
	Message   string
	Cause     error
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code so errors.Is(err, zerrors.New(zerrors.NotFound, "", nil)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates an Error with the given code and message.
func New(code Code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: defaultRetryable(code),
	}
}

// Wrap creates an Error from an existing error, preserving its message.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	if ze, ok := err.(*Error); ok {
		return ze
	}
	return New(code, err.Error(), err)
}

// Validationf creates a VALIDATION error with a formatted message.
func Validationf(format string, args ...any) *Error {
	return New(Validation, fmt.Sprintf(format, args...), nil)
}

// NotFoundf creates a NOT_FOUND error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...), nil)
}

// Conflictf creates a CONFLICT error with a formatted message.
func Conflictf(format string, args ...any) *Error {
	return New(Conflict, fmt.Sprintf(format, args...), nil)
}

func defaultRetryable(code Code) bool {
	switch code {
	case Embedding, Database:
		return true
	default:
		return false
	}
}

// WithRetryable overrides the default retryable flag. Returns the
// receiver for chaining.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var ze *Error
	if As(err, &ze) {
		return ze.Retryable
	}
	return false
}

// GetCode extracts the Code from err, or "" if err is not a *Error.
func GetCode(err error) Code {
	var ze *Error
	if As(err, &ze) {
		return ze.Code
	}
	return ""
}

// As is a small local wrapper around errors.As to avoid importing the
// standard errors package solely for this helper in call sites.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
