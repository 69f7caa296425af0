package threadguard

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
	"github.com/obinnaokechukwu/hostbridge/internal/testutil"
)

type recordingRegistrar struct {
	mu         sync.Mutex
	registered map[ThreadID]int
	calls      []string
	failWith   error
}

func newRecordingRegistrar() *recordingRegistrar {
	return &recordingRegistrar{registered: make(map[ThreadID]int)}
}

func (r *recordingRegistrar) Register(tid ThreadID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "register")
	if r.failWith != nil {
		return r.failWith
	}
	r.registered[tid]++
	return nil
}

func (r *recordingRegistrar) Unregister(tid ThreadID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "unregister")
	r.registered[tid]--
	if r.registered[tid] == 0 {
		delete(r.registered, tid)
	}
}

func (r *recordingRegistrar) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...), len(r.registered)
}

func skipIfNoThreadID(t *testing.T) {
	t.Helper()
	if _, err := CurrentThreadID(); err != nil {
		t.Skipf("thread ids unavailable on %s: %v", runtime.GOOS, err)
	}
}

func TestEnterExit(t *testing.T) {
	skipIfNoThreadID(t)
	reg := newRecordingRegistrar()
	g := New(reg, testutil.NewLogForTesting("threadguard"))

	require.False(t, g.Active())
	scope, err := g.Enter()
	require.NoError(t, err)
	require.True(t, g.Active())
	require.Equal(t, 1, g.Registered())

	scope.Exit()
	require.False(t, g.Active())
	require.Zero(t, g.Registered())

	calls, live := reg.snapshot()
	require.Equal(t, []string{"register", "unregister"}, calls)
	require.Zero(t, live)
}

func TestNestedScopesRegisterOnce(t *testing.T) {
	skipIfNoThreadID(t)
	reg := newRecordingRegistrar()
	g := New(reg, logr.Discard())

	outer, err := g.Enter()
	require.NoError(t, err)
	inner, err := g.Enter()
	require.NoError(t, err)
	require.Equal(t, outer.Thread(), inner.Thread())

	inner.Exit()
	require.True(t, g.Active(), "outer scope still holds the thread")

	outer.Exit()
	require.False(t, g.Active())

	calls, _ := reg.snapshot()
	require.Equal(t, []string{"register", "unregister"}, calls)
}

func TestExitIsIdempotent(t *testing.T) {
	skipIfNoThreadID(t)
	reg := newRecordingRegistrar()
	g := New(reg, logr.Discard())

	outer, err := g.Enter()
	require.NoError(t, err)
	inner, err := g.Enter()
	require.NoError(t, err)

	inner.Exit()
	inner.Exit()
	require.True(t, g.Active())

	outer.Exit()
	calls, _ := reg.snapshot()
	require.Equal(t, []string{"register", "unregister"}, calls)

	var nilScope *Scope
	nilScope.Exit()
}

func TestRegistrationFailure(t *testing.T) {
	skipIfNoThreadID(t)
	reg := newRecordingRegistrar()
	reg.failWith = errors.New("runtime is shutting down")
	g := New(reg, logr.Discard())

	scope, err := g.Enter()
	require.Nil(t, scope)
	require.ErrorIs(t, err, fault.ErrRuntimeUnavailable)
	require.ErrorContains(t, err, "shutting down")
	require.False(t, g.Active())
	require.Zero(t, g.Registered())

	ran := false
	err = g.Do(func() error {
		ran = true
		return nil
	})
	require.ErrorIs(t, err, fault.ErrRuntimeUnavailable)
	require.False(t, ran)
}

type panickingRegistrar struct {
	*recordingRegistrar
	panics bool
}

func (r *panickingRegistrar) Register(tid ThreadID) error {
	if r.panics {
		panic("runtime hook crashed")
	}
	return r.recordingRegistrar.Register(tid)
}

func TestRegistrarPanicReleasesThread(t *testing.T) {
	skipIfNoThreadID(t)
	reg := &panickingRegistrar{recordingRegistrar: newRecordingRegistrar(), panics: true}
	g := New(reg, logr.Discard())

	require.Panics(t, func() { _, _ = g.Enter() })
	require.False(t, g.Active())
	require.Zero(t, g.Registered())

	// The same goroutine can enter again once the hook recovers.
	reg.panics = false
	scope, err := g.Enter()
	require.NoError(t, err)
	require.True(t, g.Active())
	scope.Exit()
	require.False(t, g.Active())

	calls, live := reg.snapshot()
	require.Equal(t, []string{"register", "unregister"}, calls)
	require.Zero(t, live)
}

func TestDoReleasesOnError(t *testing.T) {
	skipIfNoThreadID(t)
	reg := newRecordingRegistrar()
	g := New(reg, logr.Discard())

	boom := errors.New("boom")
	err := g.Do(func() error {
		require.True(t, g.Active())
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, g.Active())

	_, live := reg.snapshot()
	require.Zero(t, live)
}

func TestDoReleasesOnPanic(t *testing.T) {
	skipIfNoThreadID(t)
	reg := newRecordingRegistrar()
	g := New(reg, logr.Discard())

	require.Panics(t, func() {
		_ = g.Do(func() error {
			panic("callback exploded")
		})
	})
	require.Zero(t, g.Registered())

	calls, live := reg.snapshot()
	require.Equal(t, []string{"register", "unregister"}, calls)
	require.Zero(t, live)
}

func TestConcurrentThreads(t *testing.T) {
	skipIfNoThreadID(t)
	reg := newRecordingRegistrar()
	g := New(reg, logr.Discard())

	var eg errgroup.Group
	for i := 0; i < 16; i++ {
		eg.Go(func() error {
			for j := 0; j < 50; j++ {
				err := g.Do(func() error {
					if !g.Active() {
						return errors.New("thread not registered inside scope")
					}
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())
	require.Zero(t, g.Registered())

	_, live := reg.snapshot()
	require.Zero(t, live)
}

func TestNilRegistrar(t *testing.T) {
	skipIfNoThreadID(t)
	g := New(nil, logr.Discard())
	require.NoError(t, g.Do(func() error { return nil }))
}

func TestLoadNativeRegistrarMissingLibrary(t *testing.T) {
	_, err := LoadNativeRegistrar(NativeConfig{
		Library:      "hostbridge_no_such_runtime",
		AttachSymbol: "attach",
		DetachSymbol: "detach",
	})
	require.ErrorIs(t, err, fault.ErrRuntimeUnavailable)

	_, err = LoadNativeRegistrar(NativeConfig{Library: "x"})
	require.Error(t, err)
}
