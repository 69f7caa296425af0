// Package bindings locates and opens the hosting runtime's shared library
// and resolves the symbols the bridge calls into.
package bindings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/obinnaokechukwu/hostbridge/internal/platform"
)

// ErrLibraryNotFound is returned when a runtime library cannot be found.
var ErrLibraryNotFound = errors.New("hostbridge: runtime library not found")

// ErrSymbolNotFound is returned when a library does not export a symbol.
var ErrSymbolNotFound = errors.New("hostbridge: symbol not found")

// SearchPathEnv names extra directories to search before the system paths.
const SearchPathEnv = "HOSTBRIDGE_LIBRARY_PATH"

// Library is an opened shared library.
type Library struct {
	Name string // Name as requested
	Path string // Path that was opened
	lib  nativeLib
}

// Open loads a library by name, trying the versioned names first.
// A name containing a path separator is opened as is.
func Open(name string, versions []int) (*Library, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrLibraryNotFound)
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		lib, err := tryOpen(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLibraryNotFound, name, err)
		}
		return &Library{Name: name, Path: name, lib: lib}, nil
	}

	for _, candidate := range candidates(name, versions) {
		if lib, err := tryOpen(candidate); err == nil {
			return &Library{Name: name, Path: candidate, lib: lib}, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// Symbol returns the address of an exported symbol.
func (l *Library) Symbol(name string) (uintptr, error) {
	addr, err := l.lib.symbol(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %s in %s: %v", ErrSymbolNotFound, name, l.Path, err)
	}
	if addr == 0 {
		return 0, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, l.Path)
	}
	return addr, nil
}

// Handle returns the platform handle of the library.
func (l *Library) Handle() uintptr {
	return l.lib.handle()
}

// candidates lists the paths to try in order: every search path with the
// versioned then unversioned name, then the bare names for the system loader.
func candidates(name string, versions []int) []string {
	var names []string
	for _, ver := range versions {
		names = append(names, platform.FormatLibraryName(name, ver))
	}
	names = append(names, platform.FormatLibraryName(name, 0))

	var out []string
	for _, dir := range LibrarySearchPaths() {
		for _, n := range names {
			out = append(out, filepath.Join(dir, n))
		}
	}
	return append(out, names...)
}

// FindLibrary searches for a library and returns its full path.
// This is useful for diagnostics.
func FindLibrary(name string, versions []int) (string, error) {
	for _, candidate := range candidates(name, versions) {
		if !filepath.IsAbs(candidate) {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// LibrarySearchPaths returns platform-specific library search paths.
func LibrarySearchPaths() []string {
	var paths []string
	if extra := os.Getenv(SearchPathEnv); extra != "" {
		paths = append(paths, filepath.SplitList(extra)...)
	}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Dir(exe))
	}

	switch runtime.GOOS {
	case "linux", "freebsd", "netbsd":
		if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
			paths = append(paths, filepath.SplitList(ldPath)...)
		}
		paths = append(paths,
			"/usr/local/lib",
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/lib",
			"/lib",
		)

	case "darwin":
		if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
			paths = append(paths, filepath.SplitList(dyldPath)...)
		}
		paths = append(paths,
			"/opt/homebrew/lib", // Apple Silicon
			"/usr/local/lib",    // Intel
		)

	case "windows":
		if winPath := os.Getenv("PATH"); winPath != "" {
			paths = append(paths, filepath.SplitList(winPath)...)
		}
	}

	return paths
}
