//go:build windows

package bindings

import (
	"fmt"

	"golang.org/x/sys/windows"
)

type nativeLib struct {
	dll *windows.DLL
}

func tryOpen(path string) (nativeLib, error) {
	dll, err := windows.LoadDLL(path)
	if err != nil {
		return nativeLib{}, fmt.Errorf("LoadDLL failed: %w", err)
	}
	return nativeLib{dll: dll}, nil
}

func (l nativeLib) symbol(name string) (uintptr, error) {
	if l.dll == nil {
		return 0, fmt.Errorf("library not loaded")
	}
	proc, err := l.dll.FindProc(name)
	if err != nil {
		return 0, err
	}
	return proc.Addr(), nil
}

func (l nativeLib) handle() uintptr {
	if l.dll == nil {
		return 0
	}
	return uintptr(l.dll.Handle)
}
