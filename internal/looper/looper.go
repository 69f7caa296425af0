// Package looper runs functions in order on one dedicated OS thread, the
// managed runtime's home thread.
package looper

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/smallnest/chanx"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
	"github.com/obinnaokechukwu/hostbridge/internal/threadguard"
)

var (
	// ErrLooperStopped is returned by Post after the looper has stopped.
	ErrLooperStopped = fault.New(fault.KindRuntimeUnavailable, "post", "looper stopped")

	// ErrLooperRunning is returned by a second call to Run.
	ErrLooperRunning = fault.New(fault.KindBadArgument, "run", "looper already running")
)

const initialQueueCapacity = 16

// Looper owns a queue of functions and the thread that runs them.
type Looper struct {
	guard *threadguard.Guard
	log   logr.Logger

	mu      sync.RWMutex
	stopped bool
	queue   *chanx.UnboundedChan[func()]
	cancel  context.CancelFunc

	started atomic.Bool
	thread  atomic.Uint64
	ready   chan struct{}
	done    chan struct{}
}

// New creates a looper whose thread will be registered through guard.
func New(guard *threadguard.Guard, log logr.Logger) *Looper {
	ctx, cancel := context.WithCancel(context.Background())
	return &Looper{
		guard:  guard,
		log:    log,
		queue:  chanx.NewUnboundedChan[func()](ctx, initialQueueCapacity),
		cancel: cancel,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run takes over the calling goroutine's OS thread and runs posted functions
// until Stop is called or ctx is done. Functions already queued when the
// looper stops still run.
func (l *Looper) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrLooperRunning
	}
	defer close(l.done)
	defer l.cancel()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	scope, err := l.guard.Enter()
	if err != nil {
		l.Stop()
		return fmt.Errorf("looper cannot register home thread: %w", err)
	}
	defer scope.Exit()

	l.thread.Store(uint64(scope.Thread()))
	close(l.ready)
	l.log.V(1).Info("looper started", "tid", scope.Thread())

	stop := context.AfterFunc(ctx, l.Stop)
	defer stop()

	for fn := range l.queue.Out {
		l.runOne(fn)
	}

	l.log.V(1).Info("looper stopped")
	return nil
}

func (l *Looper) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error(fmt.Errorf("panic: %v", r), "posted function panicked", "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Post queues fn to run on the looper thread. It never blocks on the
// looper's progress.
func (l *Looper) Post(fn func()) error {
	if fn == nil {
		return fault.New(fault.KindBadArgument, "post", "nil function")
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.stopped {
		return ErrLooperStopped
	}
	l.queue.In <- fn
	return nil
}

// Stop stops accepting work. Run returns once the queue is drained.
// Stop is idempotent.
func (l *Looper) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.stopped = true
	close(l.queue.In)
	if !l.started.Load() {
		l.cancel()
	}
}

// Started reports whether Run was called.
func (l *Looper) Started() bool {
	return l.started.Load()
}

// Ready is closed once Run has registered the home thread.
func (l *Looper) Ready() <-chan struct{} {
	return l.ready
}

// Done is closed when Run returns.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

// OnLooperThread reports whether the caller runs on the looper's thread.
func (l *Looper) OnLooperThread() bool {
	tid := l.thread.Load()
	if tid == 0 {
		return false
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	cur, err := threadguard.CurrentThreadID()
	return err == nil && uint64(cur) == tid
}

// Pending returns the number of queued functions.
func (l *Looper) Pending() int {
	return l.queue.Len()
}
