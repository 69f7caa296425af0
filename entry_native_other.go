//go:build !((darwin || freebsd || linux || netbsd || windows) && (amd64 || arm64))

package hostbridge

// EntryTable holds C function pointers that native code calls to complete
// callbacks. It is empty on platforms without C callback support.
type EntryTable struct {
	StringVoid      uintptr
	MapVoid         uintptr
	Failure         uintptr
	StringVoidToken uintptr
	MapVoidToken    uintptr
	Log             uintptr
}

// EntryPoints is not available on this platform; use the Go entry points.
func EntryPoints() (EntryTable, error) {
	return EntryTable{}, ErrUnsupportedPlatform
}
