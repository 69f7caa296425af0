//go:build darwin || (linux && (amd64 || arm64))

package hostbridge

import (
	"runtime"
	"testing"

	"github.com/ebitengine/purego"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/hostbridge/internal/marshal"
)

// nativeEntries binds the C entry points back into Go so the tests call them
// the way a native library would.
type nativeEntries struct {
	stringVoid      func(h uintptr, arg *byte) uintptr
	mapVoid         func(h uintptr, payload *byte) uintptr
	failure         func(h uintptr, kind int32, desc *byte) uintptr
	stringVoidToken func(token *byte, arg *byte) uintptr
	log             func(level int32, msg *byte) uintptr
}

func bindEntries(t *testing.T) *nativeEntries {
	t.Helper()
	table, err := EntryPoints()
	require.NoError(t, err)
	require.NotZero(t, table.StringVoid)

	var e nativeEntries
	purego.RegisterFunc(&e.stringVoid, table.StringVoid)
	purego.RegisterFunc(&e.mapVoid, table.MapVoid)
	purego.RegisterFunc(&e.failure, table.Failure)
	purego.RegisterFunc(&e.stringVoidToken, table.StringVoidToken)
	purego.RegisterFunc(&e.log, table.Log)
	return &e
}

func TestEntryPointsAreStable(t *testing.T) {
	a, err := EntryPoints()
	require.NoError(t, err)
	b, err := EntryPoints()
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestNativeStringVoid(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))
	e := bindEntries(t)

	var got NullString
	h := b.IssueText(func(text NullString, err error) {
		require.NoError(t, err)
		got = text
	})

	arg := marshal.ToNative("hello ✓")
	rc := e.stringVoid(uintptr(h), arg.Ptr())
	runtime.KeepAlive(arg)
	require.Zero(t, rc)
	require.Equal(t, Text("hello ✓"), got)

	// A second completion reports the invalid handle kind.
	rc = e.stringVoid(uintptr(h), arg.Ptr())
	runtime.KeepAlive(arg)
	require.EqualValues(t, KindInvalidHandle, rc)
}

func TestNativeStringVoidNull(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))
	e := bindEntries(t)

	got := Text("unset")
	h := b.IssueText(func(text NullString, err error) { got = text })
	require.Zero(t, e.stringVoid(uintptr(h), nil))
	require.False(t, got.Valid)
}

func TestNativeMapVoid(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))
	e := bindEntries(t)

	var got map[string]any
	h := b.IssueMap(func(m map[string]any, err error) { got = m })
	payload := marshal.ToNative(`{"status":201}`)
	require.Zero(t, e.mapVoid(uintptr(h), payload.Ptr()))
	runtime.KeepAlive(payload)
	require.Equal(t, map[string]any{"status": float64(201)}, got)
}

func TestNativeFailure(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))
	e := bindEntries(t)

	var got error
	h := b.IssueText(func(_ NullString, err error) { got = err })
	desc := marshal.ToNative("host unreachable")
	require.Zero(t, e.failure(uintptr(h), int32(KindNetwork), desc.Ptr()))
	runtime.KeepAlive(desc)
	require.ErrorIs(t, got, ErrNetwork)
	require.Contains(t, got.Error(), "host unreachable")

	// Unknown kinds are delivered unclassified.
	h = b.IssueText(func(_ NullString, err error) { got = err })
	require.Zero(t, e.failure(uintptr(h), 99, nil))
	require.Equal(t, ErrorKind(0), ErrorKindOf(got))
}

func TestNativeStringVoidToken(t *testing.T) {
	b, _ := newTestBridge(t, testConfig(t))
	e := bindEntries(t)

	var got NullString
	h := b.IssueText(func(text NullString, err error) { got = text })

	tok := marshal.ToNative(Token(h))
	arg := marshal.ToNative("jni")
	require.Zero(t, e.stringVoidToken(tok.Ptr(), arg.Ptr()))
	require.Equal(t, Text("jni"), got)

	bad := marshal.ToNative("garbage")
	require.EqualValues(t, KindInvalidHandle, e.stringVoidToken(bad.Ptr(), arg.Ptr()))
	runtime.KeepAlive(tok)
	runtime.KeepAlive(arg)
	runtime.KeepAlive(bad)
}

func TestNativeLog(t *testing.T) {
	_, _ = newTestBridge(t, testConfig(t))
	e := bindEntries(t)

	msg := marshal.ToNative("from native")
	for _, level := range []NativeLogLevel{NativeLogError, NativeLogInfo, NativeLogDebug, NativeLogTrace} {
		require.Zero(t, e.log(int32(level), msg.Ptr()))
	}
	runtime.KeepAlive(msg)
}
