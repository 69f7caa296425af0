// Package fault defines the error kinds shared by every layer of the bridge.
//
// Errors that indicate a broken bridge invariant (InvalidHandle,
// AlreadyResolved, RuntimeUnavailable) are programming errors and are
// reported loudly by the caller. Errors that describe the outcome of an
// external operation (Network, IO, NotFound) are ordinary values.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a bridge error.
type Kind int32

const (
	KindUnknown Kind = iota
	KindInvalidHandle
	KindAlreadyResolved
	KindRuntimeUnavailable
	KindNetwork
	KindIO
	KindNotFound
	KindBadArgument
	KindUnsupported
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInvalidHandle:
		return "invalid handle"
	case KindAlreadyResolved:
		return "already resolved"
	case KindRuntimeUnavailable:
		return "runtime unavailable"
	case KindNetwork:
		return "network error"
	case KindIO:
		return "io error"
	case KindNotFound:
		return "not found"
	case KindBadArgument:
		return "bad argument"
	case KindUnsupported:
		return "unsupported platform"
	default:
		return "unknown error"
	}
}

// Violation reports whether errors of this kind indicate a broken bridge
// invariant rather than an expected runtime condition.
func (k Kind) Violation() bool {
	return k == KindInvalidHandle || k == KindAlreadyResolved || k == KindRuntimeUnavailable
}

// Error is a classified bridge error.
type Error struct {
	Kind Kind   // Error classification
	Op   string // Operation that failed
	Msg  string // Human-readable detail, e.g. a native error description
	Err  error  // Underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = "hostbridge " + e.Op + ": " + msg
	} else {
		msg = "hostbridge: " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// Uses a direct type assertion so that errors.Is keeps walking the chain
// through Unwrap on a mismatch.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap creates an error of the given kind around cause.
// Returns nil if cause is nil.
func Wrap(kind Kind, op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: cause}
}

// Errorf creates an error of the given kind with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Sentinel errors, one per kind. Compare with errors.Is.
var (
	ErrInvalidHandle       = &Error{Kind: KindInvalidHandle}
	ErrAlreadyResolved     = &Error{Kind: KindAlreadyResolved}
	ErrRuntimeUnavailable  = &Error{Kind: KindRuntimeUnavailable}
	ErrNetwork             = &Error{Kind: KindNetwork}
	ErrIO                  = &Error{Kind: KindIO}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrBadArgument         = &Error{Kind: KindBadArgument}
	ErrUnsupportedPlatform = &Error{Kind: KindUnsupported}
)
