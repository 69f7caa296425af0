//go:build !darwin && !freebsd && !linux && !netbsd && !windows

package bindings

import "github.com/obinnaokechukwu/hostbridge/internal/fault"

type nativeLib struct{}

func tryOpen(string) (nativeLib, error) {
	return nativeLib{}, fault.ErrUnsupportedPlatform
}

func (nativeLib) symbol(string) (uintptr, error) {
	return 0, fault.ErrUnsupportedPlatform
}

func (nativeLib) handle() uintptr {
	return 0
}
