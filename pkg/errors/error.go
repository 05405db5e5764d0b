// Package errors provides error types for pushgate
package errors

import (
	"fmt"
)

// Error represents a pushgate error with structured information
type Error struct {
	// Code identifies the failure class
	Code ErrorCode

	// Message is a human-readable description
	Message string

	// Topic attributes the failure to a message topic, when known
	Topic string

	// Cause is the underlying error, if any
	Cause error
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an underlying cause
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Topic != "" {
		msg = fmt.Sprintf("%s (topic: %s)", msg, e.Topic)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so callers can use errors.Is with sentinel
// instances such as New(ErrClientClosed, "").
func (e *Error) Is(target error) bool {
	if targetErr, ok := target.(*Error); ok {
		return e.Code == targetErr.Code
	}
	return false
}

// WithTopic attributes the error to a message topic
func (e *Error) WithTopic(topic string) *Error {
	e.Topic = topic
	return e
}

// IsRetryable reports whether the caller may retry the failed operation
func (e *Error) IsRetryable() bool {
	return IsRetryable(e.Code)
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed. It returns
// an empty code when err carries no pushgate code.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if pgErr, ok := err.(*Error); ok {
			return pgErr.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
