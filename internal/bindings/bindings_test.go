package bindings

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLibrarySearchPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(SearchPathEnv, dir)

	paths := LibrarySearchPaths()
	require.NotEmpty(t, paths)
	require.Equal(t, dir, paths[0])
}

func TestFindLibraryInSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(SearchPathEnv, dir)

	name := "hostbridge_fake"
	_, err := FindLibrary(name, []int{3})
	require.ErrorIs(t, err, ErrLibraryNotFound)

	candidates := candidates(name, []int{3})
	want := candidates[1] // unversioned name in the first search path
	require.Equal(t, dir, filepath.Dir(want))
	require.NoError(t, os.WriteFile(want, nil, 0o600))

	got, err := FindLibrary(name, []int{3})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open("hostbridge_definitely_missing", []int{1})
	require.ErrorIs(t, err, ErrLibraryNotFound)

	_, err = Open("", nil)
	require.ErrorIs(t, err, ErrLibraryNotFound)
}

func TestOpenSystemLibrary(t *testing.T) {
	var name string
	var versions []int
	switch runtime.GOOS {
	case "linux":
		name, versions = "c", []int{6}
	case "darwin":
		name = "/usr/lib/libSystem.B.dylib"
	case "windows":
		name = "kernel32"
	default:
		t.Skipf("no known system library on %s", runtime.GOOS)
	}

	lib, err := Open(name, versions)
	require.NoError(t, err)
	require.NotZero(t, lib.Handle())

	_, err = lib.Symbol("hostbridge_no_such_symbol")
	require.ErrorIs(t, err, ErrSymbolNotFound)
}
