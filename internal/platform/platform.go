// Package platform implements the one-shot host calls the bridge exposes:
// executable path lookup, file time updates, DPI awareness and shared
// library naming. Each call has a build-tag selected implementation.
package platform

import (
	"fmt"
	"runtime"
)

// LibraryExtension is the file extension for shared libraries on this platform.
var LibraryExtension string

// LibraryPrefix is the prefix for shared library names on this platform.
var LibraryPrefix string

func init() {
	switch runtime.GOOS {
	case "darwin", "ios":
		LibraryExtension = ".dylib"
		LibraryPrefix = "lib"
	case "windows":
		LibraryExtension = ".dll"
		LibraryPrefix = ""
	default: // linux, android, freebsd
		LibraryExtension = ".so"
		LibraryPrefix = "lib"
	}
}

// FormatLibraryName returns the platform-specific library filename.
// If version is 0, returns the unversioned library name.
//
// Examples:
//   - Linux:   FormatLibraryName("hostrt", 2) -> "libhostrt.so.2"
//   - macOS:   FormatLibraryName("hostrt", 2) -> "libhostrt.2.dylib"
//   - Windows: FormatLibraryName("hostrt", 2) -> "hostrt-2.dll"
func FormatLibraryName(name string, version int) string {
	base := LibraryPrefix + name
	if version <= 0 {
		return base + LibraryExtension
	}
	switch runtime.GOOS {
	case "darwin", "ios":
		return fmt.Sprintf("%s.%d%s", base, version, LibraryExtension)
	case "windows":
		return fmt.Sprintf("%s-%d%s", base, version, LibraryExtension)
	default:
		return fmt.Sprintf("%s%s.%d", base, LibraryExtension, version)
	}
}
