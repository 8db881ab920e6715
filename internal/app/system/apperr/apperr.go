// Package apperr defines the error taxonomy shared by the sync engine,
// fanout, and bridge client. Handlers map kinds to HTTP statuses;
// callers use Retryable to decide whether a retry is safe.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it.
type Kind int

const (
	// NotFound: a referenced group, record, or user does not exist.
	NotFound Kind = iota + 1
	// Unauthorized: no signed-in identity on the request.
	Unauthorized
	// ValidationFailed: a required field was empty or malformed.
	ValidationFailed
	// AuthRejected: the identity token failed verification at the
	// bridge. Not retryable; the token itself is bad.
	AuthRejected
	// StorageFailure: the object-storage backend failed. Retryable.
	StorageFailure
	// PartialWriteImpossible: the document store cannot guarantee an
	// atomic batch (e.g. standalone MongoDB without transactions), so
	// the write was refused rather than risk a partial fanout.
	PartialWriteImpossible
	// Timeout: an explicit deadline elapsed before the operation
	// completed. Retryable, but the first attempt may have landed.
	Timeout
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Unauthorized:
		return "unauthorized"
	case ValidationFailed:
		return "validation failed"
	case AuthRejected:
		return "auth rejected"
	case StorageFailure:
		return "storage failure"
	case PartialWriteImpossible:
		return "partial write impossible"
	case Timeout:
		return "timeout"
	}
	return "unknown"
}

// ErrAlreadyDelivered reports that an idempotent batch matched an
// existing event key: a previous attempt of the same fanout call
// committed, so there is nothing left to write. Callers treat it as
// success.
var ErrAlreadyDelivered = errors.New("already delivered")

// Error carries a kind, the operation that failed, and an optional
// wrapped cause.
type Error struct {
	Kind Kind
	Op   string // e.g. "fanout.NotifyGroupMembers"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an error with a kind and message.
func E(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds an error with a kind around a cause. Context deadline
// errors are promoted to Timeout regardless of the requested kind.
func Wrap(kind Kind, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = Timeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the kind from err, unwrapping as needed. Errors
// without a kind report 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether a retry of the failed operation is safe
// and potentially useful. AuthRejected and ValidationFailed never
// clear on retry; NotFound rarely does.
func Retryable(err error) bool {
	switch KindOf(err) {
	case StorageFailure, Timeout:
		return true
	}
	return false
}
