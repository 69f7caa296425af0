package marshal

import (
	"golang.org/x/text/encoding/unicode"
)

// wide is the UTF-16 little-endian encoding used by Windows "W" APIs.
var wide = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// ToWide encodes s as UTF-16LE followed by a two-byte NUL terminator.
func ToWide(s string) ([]byte, error) {
	b, err := wide.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}
	return append(b, 0, 0), nil
}

// FromWide decodes UTF-16LE bytes. Decoding stops at the first NUL code unit
// if there is one.
func FromWide(b []byte) (string, error) {
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			b = b[:i]
			break
		}
	}
	out, err := wide.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
