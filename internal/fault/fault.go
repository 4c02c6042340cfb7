// Package fault defines the typed failure codes shared by all warden
// components. Every classified failure crosses a package boundary as an
// *Error carrying a stable Code, so the operation registry can render
// any outcome into the response envelope without inspecting component
// internals.
package fault

import (
	"errors"
	"fmt"
)

// Code identifies a failure class.
type Code string

const (
	// Input validation, caught before any execution.
	CodeValidation Code = "validation"

	// Policy denials from the command validator.
	CodeEmptyCommand        Code = "empty_command"
	CodeCommandTooLong      Code = "command_too_long"
	CodeBannedCommand       Code = "banned_command"
	CodeDangerousPattern    Code = "dangerous_pattern"
	CodeNetworkRequiresOptIn Code = "network_requires_opt_in"

	// Execution failures from the process executor.
	CodeTimeout         Code = "timeout"
	CodeProcessFailed   Code = "process_failed"
	CodeProcessSignaled Code = "process_signaled"
	CodeOutputTruncated Code = "output_truncated"

	// Filesystem failures.
	CodeNotFound         Code = "not_found"
	CodeNotADirectory    Code = "not_a_directory"
	CodeNotReadable      Code = "not_readable"
	CodeOffsetOutOfRange Code = "offset_out_of_range"
	CodeInvalidPattern   Code = "invalid_pattern"

	// Anything that does not match a known class.
	CodeUnclassified Code = "unclassified"
)

// Error is a classified failure. The rendered form is "code: message",
// which is what callers see in the response envelope.
type Error struct {
	Code    Code
	Message string
	Err     error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeUnclassified when the chain carries no classification.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeUnclassified
}
