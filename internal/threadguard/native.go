//go:build darwin || freebsd || linux || netbsd || windows

package threadguard

import (
	"fmt"

	"github.com/ebitengine/purego"

	"github.com/obinnaokechukwu/hostbridge/internal/bindings"
	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// NativeRegistrar calls registration hooks exported by the hosting runtime's
// shared library. The hooks have the C signatures
//
//	int  attach(uint64_t tid);  // 0 on success
//	void detach(uint64_t tid);
type NativeRegistrar struct {
	lib        *bindings.Library
	attachName string
	attach     func(tid uint64) int32
	detach     func(tid uint64)
}

// LoadNativeRegistrar opens the runtime library named in cfg and binds its
// hooks. Failures match fault.ErrRuntimeUnavailable.
func LoadNativeRegistrar(cfg NativeConfig) (*NativeRegistrar, error) {
	if cfg.AttachSymbol == "" || cfg.DetachSymbol == "" {
		return nil, fault.New(fault.KindBadArgument, "load runtime", "attach and detach symbols are required")
	}

	lib, err := bindings.Open(cfg.Library, cfg.Versions)
	if err != nil {
		return nil, fault.Wrap(fault.KindRuntimeUnavailable, "load runtime", err)
	}
	attach, err := lib.Symbol(cfg.AttachSymbol)
	if err != nil {
		return nil, fault.Wrap(fault.KindRuntimeUnavailable, "load runtime", err)
	}
	detach, err := lib.Symbol(cfg.DetachSymbol)
	if err != nil {
		return nil, fault.Wrap(fault.KindRuntimeUnavailable, "load runtime", err)
	}

	r := &NativeRegistrar{lib: lib, attachName: cfg.AttachSymbol}
	purego.RegisterFunc(&r.attach, attach)
	purego.RegisterFunc(&r.detach, detach)
	return r, nil
}

func (r *NativeRegistrar) Register(tid ThreadID) error {
	if rc := r.attach(uint64(tid)); rc != 0 {
		return fmt.Errorf("%s returned %d", r.attachName, rc)
	}
	return nil
}

func (r *NativeRegistrar) Unregister(tid ThreadID) {
	r.detach(uint64(tid))
}

// Library returns the path of the loaded runtime library.
func (r *NativeRegistrar) Library() string {
	return r.lib.Path
}
