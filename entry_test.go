package hostbridge

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCallStringVoidFromForeignThread(t *testing.T) {
	b, reg := newTestBridge(t, testConfig(t))

	type result struct {
		text       NullString
		err        error
		registered bool
	}
	got := make(chan result, 1)
	h := b.IssueText(func(text NullString, err error) {
		got <- result{text: text, err: err, registered: b.guard.Active()}
	})

	errc := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		errc <- b.CallStringVoid(h, Text("hello"))
	}()
	require.NoError(t, <-errc)

	r := <-got
	require.NoError(t, r.err)
	require.Equal(t, Text("hello"), r.text)
	require.True(t, r.registered, "callback must run on a registered thread")

	registrations, attached := reg.stats()
	require.Equal(t, 1, registrations)
	require.Zero(t, attached, "thread must be deregistered after delivery")
	require.Zero(t, b.Pending())
}

func TestCallStringVoidNull(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	var got NullString
	h := b.IssueText(func(text NullString, err error) {
		require.NoError(t, err)
		got = text
	})
	require.NoError(t, b.CallStringVoid(h, Null))
	require.False(t, got.Valid)
}

func TestSecondCompletionIsRejected(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	calls := 0
	h := b.IssueText(func(NullString, error) { calls++ })
	require.NoError(t, b.CallStringVoid(h, Text("first")))

	err := b.CallStringVoid(h, Text("second"))
	require.ErrorIs(t, err, ErrInvalidHandle)
	require.ErrorIs(t, err, ErrAlreadyResolved)

	err = b.CallFailure(h, errors.New("late failure"))
	require.ErrorIs(t, err, ErrInvalidHandle)
	require.Equal(t, 1, calls)
}

func TestNeverIssuedHandle(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	err := b.CallStringVoid(Handle(0xdead), Text("x"))
	require.ErrorIs(t, err, ErrInvalidHandle)
	require.False(t, errors.Is(err, ErrAlreadyResolved))
}

func TestStrictModePanicsOnSecondCompletion(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registry.Strict = true
	b, _ := newTestBridge(t, cfg)

	h := b.IssueText(func(NullString, error) {})
	require.NoError(t, b.CallStringVoid(h, Text("first")))
	require.Panics(t, func() {
		_ = b.CallStringVoid(h, Text("second"))
	})
}

func TestStrictModeToleratesForeignInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registry.Strict = true
	b, _ := newTestBridge(t, cfg)

	require.NotPanics(t, func() {
		err := b.CallStringVoid(Handle(0xdead), Text("x"))
		require.ErrorIs(t, err, ErrInvalidHandle)
	})
	require.NotPanics(t, func() {
		err := b.CallStringVoidToken("not-a-handle", Text("x"))
		require.ErrorIs(t, err, ErrInvalidHandle)
	})
	require.NotPanics(t, func() {
		require.Error(t, b.CancelHandle(Handle(0xbeef)))
	})
}

func TestCallFailure(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	var got error
	h := b.IssueText(func(text NullString, err error) {
		require.False(t, text.Valid)
		got = err
	})
	cause := &Error{Kind: KindNetwork, Op: "native", Msg: "connection reset"}
	require.NoError(t, b.CallFailure(h, cause))
	require.ErrorIs(t, got, ErrNetwork)

	var unknown error
	h = b.IssueMap(func(_ map[string]any, err error) { unknown = err })
	require.NoError(t, b.CallFailure(h, nil))
	require.Error(t, unknown)
	require.Equal(t, ErrorKind(0), ErrorKindOf(unknown))
}

func TestCallMapVoid(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	var got map[string]any
	h := b.IssueMap(func(m map[string]any, err error) {
		require.NoError(t, err)
		got = m
	})
	require.NoError(t, b.CallMapVoid(h, Text(`{"status":200,"content":"ok"}`)))
	require.Equal(t, map[string]any{"status": float64(200), "content": "ok"}, got)
}

func TestCallMapVoidBadPayload(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	var got error
	h := b.IssueMap(func(m map[string]any, err error) {
		require.Nil(t, m)
		got = err
	})
	err := b.CallMapVoid(h, Text("{not json"))
	require.ErrorIs(t, err, ErrBadArgument)
	require.ErrorIs(t, got, ErrBadArgument)
	require.Zero(t, b.Pending())
}

func TestTokenEntryPoints(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	var text NullString
	h := b.IssueText(func(s NullString, err error) {
		require.NoError(t, err)
		text = s
	})
	require.NoError(t, b.CallStringVoidToken(Token(h), Text("via token")))
	require.Equal(t, Text("via token"), text)

	var m map[string]any
	h = b.IssueMap(func(v map[string]any, err error) {
		require.NoError(t, err)
		m = v
	})
	require.NoError(t, b.CallMapVoidToken(Token(h), Text(`{"a":"b"}`)))
	require.Equal(t, map[string]any{"a": "b"}, m)

	var failed error
	h = b.IssueText(func(_ NullString, err error) { failed = err })
	require.NoError(t, b.CallFailureToken(Token(h), &Error{Kind: KindIO}))
	require.ErrorIs(t, failed, ErrIO)
}

func TestMalformedToken(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	for _, tok := range []string{"", "0x", "not-a-handle", "0"} {
		err := b.CallStringVoidToken(tok, Text("x"))
		require.ErrorIs(t, err, ErrInvalidHandle, "token %q", tok)
	}
}

func TestRegistrationFailureKeepsHandlePending(t *testing.T) {
	b, reg := newTestBridge(t, testConfig(t))
	reg.setFail(errors.New("runtime is shutting down"))

	called := false
	h := b.IssueText(func(NullString, error) { called = true })

	err := b.CallStringVoid(h, Text("x"))
	require.ErrorIs(t, err, ErrRuntimeUnavailable)
	require.False(t, called)
	require.Equal(t, 1, b.Pending())

	reg.setFail(nil)
	require.NoError(t, b.CallStringVoid(h, Text("x")))
	require.True(t, called)
}

func TestConcurrentCompletions(t *testing.T) {
	b, reg := newTestBridge(t, testConfig(t))
	const n = 100

	var mu sync.Mutex
	got := make(map[string]int)
	hs := make([]Handle, n)
	for i := range hs {
		hs[i] = b.IssueText(func(text NullString, err error) {
			mu.Lock()
			got[text.String]++
			mu.Unlock()
		})
	}

	var g errgroup.Group
	for i, h := range hs {
		i, h := i, h
		g.Go(func() error {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			return b.CallStringVoid(h, Text(Token(Handle(i+1))))
		})
	}
	require.NoError(t, g.Wait())

	require.Len(t, got, n)
	for _, count := range got {
		require.Equal(t, 1, count)
	}
	_, attached := reg.stats()
	require.Zero(t, attached)
	require.Zero(t, b.Pending())
}

func TestPackageEntryPoints(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))

	var got NullString
	h := b.IssueText(func(text NullString, err error) { got = text })
	require.NoError(t, CallStringVoid(h, Text("active")))
	require.Equal(t, Text("active"), got)

	var m map[string]any
	h = b.IssueMap(func(v map[string]any, err error) { m = v })
	require.NoError(t, CallMapVoidToken(Token(h), Text(`{"k":1}`)))
	require.Equal(t, map[string]any{"k": float64(1)}, m)
}

func TestPackageEntryPointsWithoutBridge(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))
	require.NoError(t, b.Shutdown(context.Background()))

	require.ErrorIs(t, CallStringVoid(1, Text("x")), ErrRuntimeUnavailable)
	require.ErrorIs(t, CallMapVoid(1, Null), ErrRuntimeUnavailable)
	require.ErrorIs(t, CallFailure(1, nil), ErrRuntimeUnavailable)
	require.ErrorIs(t, CallStringVoidToken("0x1", Null), ErrRuntimeUnavailable)
}
