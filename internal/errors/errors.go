package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a MiniWriter error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"     // 400, validation failure, never queued
	ErrNotFound       ErrorCode = "NOT_FOUND"           // 404
	ErrConflict       ErrorCode = "CONFLICT"            // 409, remote fingerprint moved
	ErrRejected       ErrorCode = "REJECTED"            // 422, remote refused the write
	ErrCorruptState   ErrorCode = "CORRUPT_LOCAL_STATE" // 500, unreadable stored JSON
	ErrInternal       ErrorCode = "INTERNAL"            // 500
	ErrUnreachable    ErrorCode = "UNREACHABLE"         // 503, transport failure
)

// MiniwriterError represents a structured error with code, status, and details.
type MiniwriterError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *MiniwriterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *MiniwriterError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid input (e.g. a missing title).
func NewInvalidRequest(msg string) *MiniwriterError {
	return &MiniwriterError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a draft or page cannot be found.
func NewNotFound(identifier string) *MiniwriterError {
	return &MiniwriterError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error carrying the remote's current fingerprint.
func NewConflict(identity, currentFingerprint string) *MiniwriterError {
	return &MiniwriterError{
		Code:    ErrConflict,
		Status:  409,
		Message: fmt.Sprintf("remote version of %s has changed", identity),
		Details: map[string]any{"identity": identity, "current_fingerprint": currentFingerprint},
	}
}

// NewRejected creates a 422 error for an application-level refusal by the remote.
func NewRejected(msg string) *MiniwriterError {
	if msg == "" {
		msg = "save rejected"
	}
	return &MiniwriterError{
		Code:    ErrRejected,
		Status:  422,
		Message: msg,
	}
}

// NewUnreachable creates a 503 error for transport failures.
func NewUnreachable(err error) *MiniwriterError {
	msg := "remote unreachable"
	if err != nil {
		msg = fmt.Sprintf("remote unreachable: %v", err)
	}
	return &MiniwriterError{
		Code:    ErrUnreachable,
		Status:  503,
		Message: msg,
		cause:   err,
	}
}

// NewCorruptState creates an error for unreadable local records.
func NewCorruptState(key string, err error) *MiniwriterError {
	return &MiniwriterError{
		Code:    ErrCorruptState,
		Status:  500,
		Message: fmt.Sprintf("corrupt local record %q: %v", key, err),
		Details: map[string]any{"key": key},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *MiniwriterError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &MiniwriterError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a MiniwriterError with the given code.
func Is(err error, code ErrorCode) bool {
	var mErr *MiniwriterError
	if stderrors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// As is a shorthand for extracting a *MiniwriterError from err.
func As(err error) (*MiniwriterError, bool) {
	var mErr *MiniwriterError
	ok := stderrors.As(err, &mErr)
	return mErr, ok
}
