// Package threadguard makes OS threads the managed runtime did not create
// safe to call back into it.
//
// A Guard brackets one callback delivery. Enter pins the calling goroutine to
// its OS thread and, if the thread is not already known to the runtime,
// registers it through a Registrar. Exit undoes both. Registration is
// reference counted per thread, so nested scopes on the same thread register
// once and deregister once.
package threadguard

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// ThreadID identifies an OS thread.
type ThreadID uint64

// Registrar is the hosting runtime's thread registration hook. Register
// makes the thread's stack known to the runtime; Unregister forgets it.
// Both are called on the thread being registered.
type Registrar interface {
	Register(tid ThreadID) error
	Unregister(tid ThreadID)
}

// NopRegistrar is used when the runtime needs no registration.
type NopRegistrar struct{}

func (NopRegistrar) Register(ThreadID) error { return nil }

func (NopRegistrar) Unregister(ThreadID) {}

// Guard tracks which threads are registered with the runtime.
type Guard struct {
	reg Registrar
	log logr.Logger

	mu    sync.Mutex
	depth map[ThreadID]int
}

// New creates a guard around r. A nil r behaves like NopRegistrar.
func New(r Registrar, log logr.Logger) *Guard {
	if r == nil {
		r = NopRegistrar{}
	}
	return &Guard{
		reg:   r,
		log:   log,
		depth: make(map[ThreadID]int),
	}
}

// Scope is one registration held by the goroutine that called Enter.
type Scope struct {
	g    *Guard
	tid  ThreadID
	done atomic.Bool
}

// Enter registers the current OS thread with the runtime for the duration of
// the returned scope. The calling goroutine stays locked to its thread until
// Exit, which must be called from the same goroutine.
//
// If the runtime refuses the thread, Enter returns an error matching
// fault.ErrRuntimeUnavailable and the thread is left unlocked.
func (g *Guard) Enter() (*Scope, error) {
	runtime.LockOSThread()
	entered := false
	// Also runs when Register panics.
	defer func() {
		if !entered {
			runtime.UnlockOSThread()
		}
	}()

	tid, err := CurrentThreadID()
	if err != nil {
		return nil, fault.Wrap(fault.KindRuntimeUnavailable, "enter", err)
	}

	// Only this thread changes its own entry, so the depth read here cannot
	// go stale while Register runs unlocked.
	g.mu.Lock()
	n := g.depth[tid]
	g.mu.Unlock()

	if n == 0 {
		if err := g.reg.Register(tid); err != nil {
			g.log.Error(err, "thread registration failed", "tid", tid)
			return nil, fault.Wrap(fault.KindRuntimeUnavailable, "enter", err)
		}
		g.log.V(2).Info("thread registered", "tid", tid)
	}

	g.mu.Lock()
	g.depth[tid] = n + 1
	g.mu.Unlock()

	entered = true
	return &Scope{g: g, tid: tid}, nil
}

// Exit releases the scope. The outermost Exit on a thread deregisters it.
// Calling Exit more than once is a no-op.
func (s *Scope) Exit() {
	if s == nil || !s.done.CompareAndSwap(false, true) {
		return
	}
	g := s.g

	g.mu.Lock()
	n := g.depth[s.tid] - 1
	if n <= 0 {
		delete(g.depth, s.tid)
	} else {
		g.depth[s.tid] = n
	}
	g.mu.Unlock()

	if n <= 0 {
		g.reg.Unregister(s.tid)
		g.log.V(2).Info("thread unregistered", "tid", s.tid)
	}
	runtime.UnlockOSThread()
}

// Thread returns the OS thread the scope was entered on.
func (s *Scope) Thread() ThreadID {
	return s.tid
}

// Do runs fn inside a scope. The scope is released even if fn panics.
func (g *Guard) Do(fn func() error) error {
	scope, err := g.Enter()
	if err != nil {
		return err
	}
	defer scope.Exit()
	return fn()
}

// Active reports whether the current OS thread is registered.
func (g *Guard) Active() bool {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tid, err := CurrentThreadID()
	if err != nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.depth[tid] > 0
}

// Registered returns the number of threads currently registered.
func (g *Guard) Registered() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.depth)
}

// NativeConfig names the runtime library and its registration hooks.
type NativeConfig struct {
	Library      string // Library name or path
	Versions     []int  // Versions to try, most preferred first
	AttachSymbol string
	DetachSymbol string
}
