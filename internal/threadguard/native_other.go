//go:build !darwin && !freebsd && !linux && !netbsd && !windows

package threadguard

import "github.com/obinnaokechukwu/hostbridge/internal/fault"

// NativeRegistrar is not available on this platform.
type NativeRegistrar struct{}

func LoadNativeRegistrar(NativeConfig) (*NativeRegistrar, error) {
	return nil, fault.Wrap(fault.KindRuntimeUnavailable, "load runtime", fault.ErrUnsupportedPlatform)
}

func (*NativeRegistrar) Register(ThreadID) error { return fault.ErrUnsupportedPlatform }

func (*NativeRegistrar) Unregister(ThreadID) {}

func (*NativeRegistrar) Library() string { return "" }
