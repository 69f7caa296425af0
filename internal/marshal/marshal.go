// Package marshal converts between Go text and the representations used on
// the native side of the bridge: NUL-terminated byte strings, UTF-16 wide
// strings, JSON-encoded structured payloads and string-encoded handle tokens.
//
// Native strings are transient. A NativeString owns its buffer and the
// pointer it hands out is only valid while the NativeString is reachable, so
// callers keep it alive (runtime.KeepAlive) across the native call that uses
// it and never store the pointer on the native side.
package marshal

import (
	"errors"
	"unsafe"
)

// MaxNativeStringLen bounds the scan for a NUL terminator when reading a
// string out of native memory.
const MaxNativeStringLen = 64 << 20

// ErrStringTooLong is returned by GoString when no NUL terminator was found
// within MaxNativeStringLen bytes.
var ErrStringTooLong = errors.New("hostbridge: native string exceeds maximum length")

// NullString is managed text that may be absent.
// The zero value is the null sentinel, which is distinct from Valid empty text.
type NullString struct {
	String string
	Valid  bool
}

// Text returns valid managed text.
func Text(s string) NullString {
	return NullString{String: s, Valid: true}
}

// Null is the absent-text sentinel.
var Null = NullString{}

// NativeString is a NUL-terminated native copy of managed text.
// The zero value is the native null pointer.
type NativeString struct {
	buf []byte // nil for null; otherwise text bytes followed by one NUL
}

// ToNative copies s into a NUL-terminated buffer.
//
// Text containing NUL bytes round-trips through ToManaged, but native code
// reading the pointer as a C string will stop at the first NUL.
func ToNative(s string) NativeString {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return NativeString{buf: buf}
}

// ToNativeNullable copies s, mapping the null sentinel to a null NativeString.
func ToNativeNullable(s NullString) NativeString {
	if !s.Valid {
		return NativeString{}
	}
	return ToNative(s.String)
}

// ToManaged converts a native string back to managed text.
func ToManaged(n NativeString) NullString {
	if n.buf == nil {
		return Null
	}
	return Text(string(n.buf[:len(n.buf)-1]))
}

// IsNull reports whether n is the native null pointer.
func (n NativeString) IsNull() bool {
	return n.buf == nil
}

// Len returns the length of the text in bytes, excluding the terminator.
func (n NativeString) Len() int {
	if n.buf == nil {
		return 0
	}
	return len(n.buf) - 1
}

// Ptr returns a pointer to the first byte, or nil for null.
func (n NativeString) Ptr() *byte {
	if n.buf == nil {
		return nil
	}
	return &n.buf[0]
}

// Addr returns the buffer address for foreign calls that take a uintptr,
// or 0 for null.
func (n NativeString) Addr() uintptr {
	return uintptr(unsafe.Pointer(n.Ptr()))
}

// GoString reads a NUL-terminated string from native memory.
// A nil pointer yields the null sentinel.
func GoString(ptr *byte) (NullString, error) {
	if ptr == nil {
		return Null, nil
	}
	for i := 0; i < MaxNativeStringLen; i++ {
		if *(*byte)(unsafe.Add(unsafe.Pointer(ptr), i)) == 0 {
			return Text(string(unsafe.Slice(ptr, i))), nil
		}
	}
	return Null, ErrStringTooLong
}

// GoStringN reads exactly n bytes from native memory.
func GoStringN(ptr *byte, n int) NullString {
	if ptr == nil {
		return Null
	}
	if n <= 0 {
		return Text("")
	}
	return Text(string(unsafe.Slice(ptr, n)))
}
