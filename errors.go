package hostbridge

import (
	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// Error is a classified bridge error. Use errors.Is with the sentinels below
// to test its kind.
type Error = fault.Error

// ErrorKind classifies an Error.
type ErrorKind = fault.Kind

// Error kinds
const (
	KindInvalidHandle      = fault.KindInvalidHandle
	KindAlreadyResolved    = fault.KindAlreadyResolved
	KindRuntimeUnavailable = fault.KindRuntimeUnavailable
	KindNetwork            = fault.KindNetwork
	KindIO                 = fault.KindIO
	KindNotFound           = fault.KindNotFound
	KindBadArgument        = fault.KindBadArgument
	KindUnsupported        = fault.KindUnsupported
)

// Common errors
var (
	// ErrInvalidHandle indicates a handle that was never issued, or one
	// delivered to after it was retired.
	ErrInvalidHandle = fault.ErrInvalidHandle

	// ErrAlreadyResolved indicates a second resolution of a handle.
	ErrAlreadyResolved = fault.ErrAlreadyResolved

	// ErrRuntimeUnavailable indicates the calling thread could not be
	// registered with the managed runtime, or no bridge is active.
	ErrRuntimeUnavailable = fault.ErrRuntimeUnavailable

	// ErrNetwork indicates a failed native network request.
	ErrNetwork = fault.ErrNetwork

	// ErrIO indicates a failed filesystem operation.
	ErrIO = fault.ErrIO

	// ErrNotFound indicates a missing file or executable.
	ErrNotFound = fault.ErrNotFound

	// ErrBadArgument indicates an invalid request.
	ErrBadArgument = fault.ErrBadArgument

	// ErrUnsupportedPlatform indicates the call has no implementation here.
	ErrUnsupportedPlatform = fault.ErrUnsupportedPlatform

	// ErrClosed indicates the bridge has been shut down.
	ErrClosed = fault.New(fault.KindRuntimeUnavailable, "", "bridge is shut down")
)

// ErrorKindOf returns the kind of the first Error in err's chain.
func ErrorKindOf(err error) ErrorKind {
	return fault.KindOf(err)
}
