// Package handles provides a thread-safe registry that represents managed
// callbacks as opaque, address-sized handles.
//
// Native code cannot hold Go pointers: the collector may move or free the
// object behind them. Instead a callback is issued into the registry and
// native code receives a uintptr handle that can be stored in C memory or
// passed through JNI as a string. When the native operation completes the
// handle is resolved exactly once, which invokes the callback and retires the
// handle for good.
//
// Handle values increase monotonically and are never reused, so a retired
// handle can always be told apart from one that was never issued.
package handles

import (
	"slices"
	"sync"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// Handle is an opaque token standing for one issued callback.
// Zero is never issued.
type Handle uintptr

// Callback is the managed side of one pending completion.
type Callback interface {
	// Invoke delivers a successful result.
	Invoke(args ...any)
	// Fail delivers a failed result.
	Fail(err error)
}

// Func adapts a plain function to Callback.
// Fail calls it with the error as its only argument.
type Func func(args ...any)

func (f Func) Invoke(args ...any) { f(args...) }

func (f Func) Fail(err error) { f(err) }

// Registry maps handles to callbacks.
type Registry struct {
	mu          sync.Mutex
	entries     map[Handle]Callback
	nextID      Handle
	onViolation func(error)
}

// Option configures a Registry.
type Option func(*Registry)

// WithViolationHandler installs fn to be told about protocol violations:
// resolving a retired handle or using one that was never issued.
// fn runs on the calling goroutine after the registry lock is released.
func WithViolationHandler(fn func(error)) Option {
	return func(r *Registry) {
		r.onViolation = fn
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[Handle]Callback),
		nextID:  1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetViolationHandler replaces the violation handler.
func (r *Registry) SetViolationHandler(fn func(error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onViolation = fn
}

// Issue stores cb and returns its handle.
//
// Issue touches the managed callback directly and must only be called from
// the managed runtime's own execution context, never from a foreign thread.
func (r *Registry) Issue(cb Callback) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := r.nextID
	r.nextID++
	r.entries[h] = cb
	return h
}

// Lookup returns the callback for a live handle without consuming it.
// Handles that were never issued or are already retired fail with
// fault.ErrInvalidHandle.
func (r *Registry) Lookup(h Handle) (Callback, error) {
	r.mu.Lock()
	cb, ok := r.entries[h]
	r.mu.Unlock()
	if !ok {
		return nil, fault.Errorf(fault.KindInvalidHandle, "lookup", "handle %#x", uintptr(h))
	}
	return cb, nil
}

// Resolve invokes the callback for h with args, exactly once, and retires h.
//
// Resolve may be called from any thread, but the callback touches managed
// state: a caller on a foreign thread must already hold a registration
// guard for it. Resolve does not register threads itself.
func (r *Registry) Resolve(h Handle, args ...any) error {
	cb, err := r.take(h, "resolve")
	if err != nil {
		return err
	}
	cb.Invoke(args...)
	return nil
}

// Fail delivers err to the callback for h, exactly once, and retires h.
// The same thread rules as Resolve apply.
func (r *Registry) Fail(h Handle, err error) error {
	cb, takeErr := r.take(h, "fail")
	if takeErr != nil {
		return takeErr
	}
	cb.Fail(err)
	return nil
}

// Cancel retires h without invoking its callback.
// Canceling a retired handle is a no-op.
func (r *Registry) Cancel(h Handle) error {
	r.mu.Lock()
	if _, ok := r.entries[h]; ok {
		delete(r.entries, h)
		r.mu.Unlock()
		return nil
	}
	issued := r.issuedLocked(h)
	r.mu.Unlock()

	if issued {
		return nil
	}
	err := fault.Errorf(fault.KindInvalidHandle, "cancel", "handle %#x was never issued", uintptr(h))
	r.violation(err)
	return err
}

// Len returns the number of live handles.
// Useful for debugging and testing leaks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Pending returns the live handles in issue order.
func (r *Registry) Pending() []Handle {
	r.mu.Lock()
	out := make([]Handle, 0, len(r.entries))
	for h := range r.entries {
		out = append(out, h)
	}
	r.mu.Unlock()
	slices.Sort(out)
	return out
}

// take removes and returns the callback for h.
func (r *Registry) take(h Handle, op string) (Callback, error) {
	r.mu.Lock()
	cb, ok := r.entries[h]
	if ok {
		delete(r.entries, h)
		r.mu.Unlock()
		return cb, nil
	}
	issued := r.issuedLocked(h)
	r.mu.Unlock()

	var err error
	if issued {
		err = fault.Errorf(fault.KindAlreadyResolved, op, "handle %#x", uintptr(h))
	} else {
		err = fault.Errorf(fault.KindInvalidHandle, op, "handle %#x was never issued", uintptr(h))
	}
	r.violation(err)
	return nil, err
}

func (r *Registry) issuedLocked(h Handle) bool {
	return h != 0 && h < r.nextID
}

func (r *Registry) violation(err error) {
	r.mu.Lock()
	fn := r.onViolation
	r.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
