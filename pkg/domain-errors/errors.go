// Package domainerrors carries coded errors across the service boundary.
//
// Stores return sentinel facts (see pkg/platform/sentinel); services translate
// them into one of the codes below so transports can map them without
// inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation covers malformed input and policy violations.
	CodeValidation Code = "validation_error"
	// CodeInvalidInput covers values that fail to parse at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeConflict covers uniqueness and idempotency violations found at commit time.
	CodeConflict Code = "conflict"
	// CodeNotFound covers unresolvable identifiers.
	CodeNotFound Code = "not_found"
	// CodePartialParse reports row-level issues alongside a usable result.
	CodePartialParse Code = "partial_parse"
	// CodeInvariantViolation is raised by model constructors.
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Err is optional.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a coded error without a cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost code in the chain, or CodeInternal when none is present.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost domain error in the chain carries code.
func HasCode(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}

// Is is shorthand for HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
