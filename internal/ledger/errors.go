package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is the cause of every NOT_FOUND error.
var ErrNotFound = errors.New("not found")

// Error is the single error type surfaced to the user.
//
// Errors are terminal per operation: whoever returns one has left the local
// ledger exactly as it was before the operation started.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed ("create customer", ...).
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// CodeValidation: rejected before any remote call. Nothing was mutated.
	CodeValidation ErrorCode = "VALIDATION"

	// CodeRemote: the remote call failed or the remote refused the operation.
	CodeRemote ErrorCode = "REMOTE"

	// CodeNotFound: the target is no longer present locally.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeNavigation: an invalid view transition was requested.
	CodeNavigation ErrorCode = "NAVIGATION"

	// CodeLocked: the session is not authenticated.
	CodeLocked ErrorCode = "LOCKED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Validation creates a CodeValidation error.
func Validation(op, message string) *Error {
	return &Error{Code: CodeValidation, Op: op, Message: message}
}

// Remote wraps a failed remote call.
func Remote(op string, err error) *Error {
	return &Error{Code: CodeRemote, Op: op, Message: "remote call failed", Err: err}
}

// NotFound creates a CodeNotFound error for the given customer or transaction id.
func NotFound(op, id string) *Error {
	return &Error{Code: CodeNotFound, Op: op, Message: fmt.Sprintf("%q is no longer available", id), Err: ErrNotFound}
}

// Navigation creates a CodeNavigation error.
func Navigation(op, message string) *Error {
	return &Error{Code: CodeNavigation, Op: op, Message: message}
}

// Locked creates a CodeLocked error.
func Locked(op string) *Error {
	return &Error{Code: CodeLocked, Op: op, Message: "ledger is locked"}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var le *Error
	if errors.As(err, &le) {
		return le.Code
	}
	return ""
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsRemote returns true if err is a remote error.
func IsRemote(err error) bool { return CodeOf(err) == CodeRemote }

// IsNotFound matches both CodeNotFound errors and a bare ErrNotFound.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound || errors.Is(err, ErrNotFound)
}

// IsNavigation returns true if err is a navigation error.
func IsNavigation(err error) bool { return CodeOf(err) == CodeNavigation }

// IsLocked returns true if err is a locked-session error.
func IsLocked(err error) bool { return CodeOf(err) == CodeLocked }
