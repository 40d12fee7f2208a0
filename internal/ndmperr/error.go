// Package ndmperr carries the NDMP reply error taxonomy as a
// Go error type, so request handlers can return a normal error and have
// the dispatcher fold it into the reply's error field instead of sending
// a connection-fatal failure.
package ndmperr

import (
	"errors"
	"fmt"

	"github.com/araujobsd/ndmpd/internal/protocol/ndmp"
)

// Error wraps an NDMP error code with an optional human-readable cause.
// It is never meant to close the connection; the dispatcher always has a
// reply to send, carrying Code in the reply's error field.
type Error struct {
	Code ndmp.ErrorCode
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error for op with no underlying cause.
func New(op string, code ndmp.ErrorCode) *Error {
	return &Error{Op: op, Code: code}
}

// Wrap builds an Error for op, code, carrying err as the cause.
func Wrap(op string, code ndmp.ErrorCode, err error) *Error {
	return &Error{Op: op, Code: code, Err: err}
}

// CodeOf extracts the NDMP error code from err, defaulting to
// ErrInternalError for any error that isn't an *Error.
func CodeOf(err error) ndmp.ErrorCode {
	if err == nil {
		return ndmp.ErrNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ndmp.ErrInternalError
}
