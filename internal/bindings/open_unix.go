//go:build darwin || freebsd || linux || netbsd

package bindings

import "github.com/ebitengine/purego"

type nativeLib uintptr

// tryOpen opens a library with RTLD_NOW | RTLD_GLOBAL so that symbols of the
// runtime are visible to libraries it loads later.
func tryOpen(path string) (nativeLib, error) {
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, err
	}
	return nativeLib(lib), nil
}

func (l nativeLib) symbol(name string) (uintptr, error) {
	return purego.Dlsym(uintptr(l), name)
}

func (l nativeLib) handle() uintptr {
	return uintptr(l)
}
