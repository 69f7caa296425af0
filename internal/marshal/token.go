package marshal

import (
	"strconv"
	"strings"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// ErrMalformedToken is returned by ParseToken for input that does not encode
// an address-sized integer. It matches fault.ErrInvalidHandle.
var ErrMalformedToken = fault.New(fault.KindInvalidHandle, "parse token", "malformed handle token")

// FormatToken renders an address-sized handle as a string, for foreign-call
// conventions (JNI) that pass callback references as strings.
func FormatToken(h uintptr) string {
	return "0x" + strconv.FormatUint(uint64(h), 16)
}

// ParseToken decodes a token produced by FormatToken. Plain decimal is also
// accepted. Zero is never a valid token.
func ParseToken(s string) (uintptr, error) {
	s = strings.TrimSpace(s)
	var (
		v   uint64
		err error
	)
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		v, err = strconv.ParseUint(rest, 16, 64)
	} else if rest, ok := strings.CutPrefix(s, "0X"); ok {
		v, err = strconv.ParseUint(rest, 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil || v == 0 || uint64(uintptr(v)) != v {
		return 0, ErrMalformedToken
	}
	return uintptr(v), nil
}
