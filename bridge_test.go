package hostbridge

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/hostbridge/internal/testutil"
	"github.com/obinnaokechukwu/hostbridge/internal/threadguard"
)

type countingRegistrar struct {
	mu         sync.Mutex
	registered int
	attached   map[ThreadID]bool
	fail       error
}

func newCountingRegistrar() *countingRegistrar {
	return &countingRegistrar{attached: make(map[ThreadID]bool)}
}

func (r *countingRegistrar) Register(tid ThreadID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.registered++
	r.attached[tid] = true
	return nil
}

func (r *countingRegistrar) Unregister(tid ThreadID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attached, tid)
}

func (r *countingRegistrar) setFail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

func (r *countingRegistrar) stats() (registrations, attached int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered, len(r.attached)
}

func skipIfNoThreadID(t *testing.T) {
	t.Helper()
	if _, err := threadguard.CurrentThreadID(); err != nil {
		t.Skipf("thread ids unavailable on %s: %v", runtime.GOOS, err)
	}
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.HTTP.FilesDir = t.TempDir()
	return cfg
}

func newTestBridge(t *testing.T, cfg Config, opts ...Option) (*Bridge, *countingRegistrar) {
	t.Helper()
	skipIfNoThreadID(t)

	reg := newCountingRegistrar()
	opts = append([]Option{
		WithLogger(testutil.NewLogForTesting(t.Name())),
		WithRegistrar(reg),
	}, opts...)
	b, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.Shutdown(ctx)
	})
	return b, reg
}

func TestNewMakesBridgeActive(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))
	require.Same(t, b, Active())

	require.NoError(t, b.Shutdown(context.Background()))
	require.Nil(t, Active())

	// A second shutdown is a no-op.
	require.NoError(t, b.Shutdown(context.Background()))
}

func TestNewWithMissingRuntimeLibrary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Runtime.Library = "hostbridge_no_such_runtime"
	_, err := New(cfg, WithLogger(testutil.NewLogForTesting(t.Name())))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrRuntimeUnavailable) || errors.Is(err, ErrUnsupportedPlatform), "got %v", err)
}

func TestShutdownRejectsNewOperations(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))
	require.NoError(t, b.Shutdown(context.Background()))

	_, err := b.SendHTTPRequest(context.Background(), HTTPRequest{URL: "http://127.0.0.1:1/"}, func(HTTPResponse, error) {
		t.Error("callback must not run")
	})
	require.ErrorIs(t, err, ErrClosed)
	require.Zero(t, b.Pending())
}

func TestCallbackPanicIsContained(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	h := b.IssueText(func(NullString, error) {
		panic("boom")
	})
	require.NoError(t, b.CallStringVoid(h, Text("x")))
	require.Zero(t, b.Pending())
}

func TestHomeThreadDisabled(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))
	require.ErrorIs(t, b.RunHomeThread(context.Background()), ErrBadArgument)
	require.ErrorIs(t, b.Post(func() {}), ErrBadArgument)
	require.Nil(t, b.HomeThreadReady())
}

func TestCancelHandle(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	h := b.IssueText(func(NullString, error) {
		t.Error("canceled callback must not run")
	})
	require.Equal(t, 1, b.Pending())
	require.NoError(t, b.CancelHandle(h))
	require.Zero(t, b.Pending())

	err := b.CallStringVoid(h, Text("late"))
	require.ErrorIs(t, err, ErrInvalidHandle)
	require.ErrorIs(t, err, ErrAlreadyResolved)
}
