package hostbridge

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
	"github.com/obinnaokechukwu/hostbridge/internal/handles"
	"github.com/obinnaokechukwu/hostbridge/internal/looper"
	"github.com/obinnaokechukwu/hostbridge/internal/marshal"
	"github.com/obinnaokechukwu/hostbridge/internal/threadguard"
)

// Registrar is the hosting runtime's thread registration hook.
type Registrar = threadguard.Registrar

// ThreadID identifies an OS thread.
type ThreadID = threadguard.ThreadID

// Bridge connects native completions to managed callbacks. The most recently
// created Bridge receives calls made through the package-level entry points.
type Bridge struct {
	cfg      Config
	log      logr.Logger
	registry *handles.Registry
	guard    *threadguard.Guard
	looper   *looper.Looper
	client   *http.Client
	sem      *semaphore.Weighted

	violations rate.Sometimes

	lifetime context.Context
	shutdown context.CancelFunc

	mu     sync.Mutex
	ops    map[string]*Operation
	posted map[string]*Operation // Completions queued on the home thread
	closed bool
	wg     sync.WaitGroup
}

var active atomic.Pointer[Bridge]

// Active returns the bridge that receives package-level entry point calls,
// or nil.
func Active() *Bridge {
	return active.Load()
}

type options struct {
	log       *logr.Logger
	registrar Registrar
	client    *http.Client
}

// Option configures a Bridge.
type Option func(*options)

// WithLogger sets the bridge logger. The package logger is the default.
func WithLogger(log logr.Logger) Option {
	return func(o *options) {
		o.log = &log
	}
}

// WithRegistrar sets the thread registration hook, overriding [runtime]
// in the configuration.
func WithRegistrar(r Registrar) Option {
	return func(o *options) {
		o.registrar = r
	}
}

// WithHTTPClient sets the client used by the HTTP adapters.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// New creates a bridge and makes it the active one.
func New(cfg Config, opts ...Option) (*Bridge, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := Logger()
	if o.log != nil {
		log = *o.log
	}
	log = log.WithName("hostbridge")

	registrar := o.registrar
	if registrar == nil && cfg.Runtime.Library != "" {
		native, err := threadguard.LoadNativeRegistrar(threadguard.NativeConfig{
			Library:      cfg.Runtime.Library,
			Versions:     cfg.Runtime.Versions,
			AttachSymbol: cfg.Runtime.AttachSymbol,
			DetachSymbol: cfg.Runtime.DetachSymbol,
		})
		if err != nil {
			return nil, err
		}
		log.Info("loaded runtime library", "path", native.Library())
		registrar = native
	}

	client := o.client
	if client == nil {
		client = &http.Client{}
	}
	maxConcurrent := cfg.HTTP.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	lifetime, shutdown := context.WithCancel(context.Background())
	b := &Bridge{
		cfg:        cfg,
		log:        log,
		guard:      threadguard.New(registrar, log.WithName("threadguard")),
		client:     client,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		violations: rate.Sometimes{First: 10, Interval: 10 * time.Second},
		lifetime:   lifetime,
		shutdown:   shutdown,
		ops:        make(map[string]*Operation),
		posted:     make(map[string]*Operation),
	}
	b.registry = handles.NewRegistry(handles.WithViolationHandler(b.onViolation))
	if cfg.HTTP.DeliverOnHomeThread {
		b.looper = looper.New(b.guard, log.WithName("looper"))
	}

	active.Store(b)
	return b, nil
}

// Config returns the configuration the bridge was created with.
func (b *Bridge) Config() Config {
	return b.cfg
}

// onViolation reports a broken callback protocol. Strict bridges panic on a
// second resolution of a handle. Malformed or unknown handles come from
// foreign input and are only logged.
func (b *Bridge) onViolation(err error) {
	b.violations.Do(func() {
		b.log.Error(err, "callback protocol violation")
	})
	if b.cfg.Registry.Strict && fault.KindOf(err) == fault.KindAlreadyResolved {
		panic(err)
	}
}

// RunHomeThread runs the home thread looper on the calling goroutine until
// ctx is done or the bridge shuts down. It is only available when
// [http] deliver_on_home_thread is set.
func (b *Bridge) RunHomeThread(ctx context.Context) error {
	if b.looper == nil {
		return fault.New(fault.KindBadArgument, "run home thread", "home thread delivery is not enabled")
	}
	return b.looper.Run(ctx)
}

// HomeThreadReady is closed once the home thread is running. It is nil when
// home thread delivery is disabled.
func (b *Bridge) HomeThreadReady() <-chan struct{} {
	if b.looper == nil {
		return nil
	}
	return b.looper.Ready()
}

// Post runs fn on the home thread.
func (b *Bridge) Post(fn func()) error {
	if b.looper == nil {
		return fault.New(fault.KindBadArgument, "post", "home thread delivery is not enabled")
	}
	return b.looper.Post(fn)
}

// IssueText stores fn and returns the handle native code resolves with a
// text argument through CallStringVoid.
func (b *Bridge) IssueText(fn func(text NullString, err error)) Handle {
	return b.registry.Issue(textCallback{b: b, fn: fn})
}

// IssueMap stores fn and returns the handle native code resolves with a
// structured argument through CallMapVoid.
func (b *Bridge) IssueMap(fn func(m map[string]any, err error)) Handle {
	return b.registry.Issue(mapCallback{b: b, fn: fn})
}

// Token renders h for string-based foreign call conventions such as JNI.
func Token(h Handle) string {
	return marshal.FormatToken(uintptr(h))
}

// CancelHandle retires h without invoking its callback.
func (b *Bridge) CancelHandle(h Handle) error {
	return b.registry.Cancel(h)
}

// Pending returns the number of unresolved handles.
func (b *Bridge) Pending() int {
	return b.registry.Len()
}

// Operations returns the operations still in flight.
func (b *Bridge) Operations() []*Operation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Operation, 0, len(b.ops))
	for _, op := range b.ops {
		out = append(out, op)
	}
	return out
}

// Cancel abandons op. Its callback will not run. Cancel reports false if op
// already completed or its result is being delivered.
func (b *Bridge) Cancel(op *Operation) bool {
	if !op.cancel() {
		return false
	}
	_ = b.registry.Cancel(op.Handle)
	b.log.V(1).Info("operation canceled", "op", op.ID, "kind", op.Kind)
	return true
}

// Shutdown cancels all in-flight operations, waits for their workers and
// stops the home thread. It stops waiting when ctx is done.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	active.CompareAndSwap(b, nil)
	b.shutdown()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for operations: %w", ctx.Err())
	}

	if b.looper != nil {
		b.looper.Stop()
		if b.looper.Started() {
			select {
			case <-b.looper.Done():
			case <-ctx.Done():
			}
		}
		b.dropPosted()
	}
	return err
}

// dropPosted cancels completions the home thread never ran.
func (b *Bridge) dropPosted() {
	b.mu.Lock()
	dropped := make([]*Operation, 0, len(b.posted))
	for id, op := range b.posted {
		dropped = append(dropped, op)
		delete(b.posted, id)
	}
	b.mu.Unlock()

	for _, op := range dropped {
		b.abandon(op, OperationCanceled, ErrClosed, "dropping completion")
	}
}

// safely runs a managed callback. A panic is logged, not propagated into
// the native caller.
func (b *Bridge) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error(fmt.Errorf("panic: %v", r), "callback panicked", "callback", what, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
