package hostbridge

import (
	"github.com/obinnaokechukwu/hostbridge/internal/fault"
	"github.com/obinnaokechukwu/hostbridge/internal/marshal"
)

// The entry points below are how native code completes a pending callback.
// Each one registers the calling OS thread with the runtime, resolves the
// handle exactly once and deregisters the thread again, whatever the
// outcome. They may be called from any thread.
//
// A handle that was already resolved yields an error matching both
// ErrInvalidHandle and ErrAlreadyResolved. If the thread cannot be
// registered the error matches ErrRuntimeUnavailable and the handle stays
// pending.

// CallStringVoid resolves h with a text argument.
func (b *Bridge) CallStringVoid(h Handle, arg NullString) error {
	return b.deliver("call string", func() error {
		return b.registry.Resolve(h, arg)
	})
}

// CallMapVoid resolves h with a structured argument encoded as JSON.
// A payload that does not decode fails the handle with ErrBadArgument.
func (b *Bridge) CallMapVoid(h Handle, payload NullString) error {
	m, err := marshal.DecodeMap(payload)
	if err != nil {
		bad := fault.Wrap(fault.KindBadArgument, "call map", err)
		if ferr := b.CallFailure(h, bad); ferr != nil {
			return ferr
		}
		return bad
	}
	return b.deliver("call map", func() error {
		return b.registry.Resolve(h, m)
	})
}

// CallFailure fails h with cause.
func (b *Bridge) CallFailure(h Handle, cause error) error {
	if cause == nil {
		cause = fault.New(fault.KindUnknown, "call failure", "native operation failed")
	}
	return b.deliver("call failure", func() error {
		return b.registry.Fail(h, cause)
	})
}

// CallStringVoidToken is CallStringVoid for a string-encoded handle.
func (b *Bridge) CallStringVoidToken(token string, arg NullString) error {
	h, err := b.parseToken(token)
	if err != nil {
		return err
	}
	return b.CallStringVoid(h, arg)
}

// CallMapVoidToken is CallMapVoid for a string-encoded handle.
func (b *Bridge) CallMapVoidToken(token string, payload NullString) error {
	h, err := b.parseToken(token)
	if err != nil {
		return err
	}
	return b.CallMapVoid(h, payload)
}

// CallFailureToken is CallFailure for a string-encoded handle.
func (b *Bridge) CallFailureToken(token string, cause error) error {
	h, err := b.parseToken(token)
	if err != nil {
		return err
	}
	return b.CallFailure(h, cause)
}

func (b *Bridge) parseToken(token string) (Handle, error) {
	v, err := marshal.ParseToken(token)
	if err != nil {
		b.onViolation(err)
		return 0, err
	}
	return Handle(v), nil
}

func (b *Bridge) deliver(op string, resolve func() error) error {
	err := b.guard.Do(resolve)
	if fault.KindOf(err) == fault.KindAlreadyResolved {
		return fault.Wrap(fault.KindInvalidHandle, op, err)
	}
	return err
}

func activeBridge() (*Bridge, error) {
	b := active.Load()
	if b == nil {
		return nil, fault.New(fault.KindRuntimeUnavailable, "call", "no active bridge")
	}
	return b, nil
}

// CallStringVoid resolves h on the active bridge.
func CallStringVoid(h Handle, arg NullString) error {
	b, err := activeBridge()
	if err != nil {
		return err
	}
	return b.CallStringVoid(h, arg)
}

// CallMapVoid resolves h on the active bridge.
func CallMapVoid(h Handle, payload NullString) error {
	b, err := activeBridge()
	if err != nil {
		return err
	}
	return b.CallMapVoid(h, payload)
}

// CallFailure fails h on the active bridge.
func CallFailure(h Handle, cause error) error {
	b, err := activeBridge()
	if err != nil {
		return err
	}
	return b.CallFailure(h, cause)
}

// CallStringVoidToken resolves a string-encoded handle on the active bridge.
func CallStringVoidToken(token string, arg NullString) error {
	b, err := activeBridge()
	if err != nil {
		return err
	}
	return b.CallStringVoidToken(token, arg)
}

// CallMapVoidToken resolves a string-encoded handle on the active bridge.
func CallMapVoidToken(token string, payload NullString) error {
	b, err := activeBridge()
	if err != nil {
		return err
	}
	return b.CallMapVoidToken(token, payload)
}
