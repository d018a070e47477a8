// Package errors provides the typed error taxonomy shared by the ledger,
// the coin adapters and the HTTP surface. Every failure that crosses a
// component boundary carries a Kind so callers can branch on it without
// string matching.
package errors

import (
	"errors"
	"fmt"
)

// Standard error functions
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// Error kinds. Recoverability is part of the contract: BackendUnavailable
// and ExecutionFailure may be retried, InvalidRequest, InsufficientBalance
// and StateConflict are rejected before any ledger mutation, and
// PersistenceError is fatal for the operation that hit it.
const (
	KindBackendUnavailable  = "BackendUnavailable"
	KindInvalidRequest      = "InvalidRequest"
	KindInsufficientBalance = "InsufficientBalance"
	KindStateConflict       = "StateConflict"
	KindExecutionFailure    = "ExecutionFailure"
	KindPersistenceError    = "PersistenceError"

	// Transport-level kinds used by the HTTP/JSON client.
	KindTransportError = "TransportError"
	KindProtocolError  = "ProtocolError"
	KindDecodeError    = "DecodeError"
)

// Error is the structured error passed across component boundaries.
type Error struct {
	// Kind is the taxonomy bucket the error belongs to.
	Kind string `json:"kind"`
	// Message is the human readable description.
	Message string `json:"message"`

	cause error
}

var _ error = (*Error)(nil)

// New creates an error with a kind and message.
func New(kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error with a kind and a formatted message.
func Newf(kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Error implements error.
func (e *Error) Error() string {
	str := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.cause != nil {
		str += fmt.Sprintf(" (%s)", e.cause)
	}
	return str
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// KindOf returns the kind of err, or the empty string for untyped errors.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind string) bool {
	return KindOf(err) == kind
}
