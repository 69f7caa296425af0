package platform

import (
	"context"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// ExecutablePath returns the absolute path of the running executable with
// symlinks resolved.
//
// The process table is consulted first; os.Executable is the fallback when
// the process cannot be inspected (sandboxed mobile apps, restricted /proc).
func ExecutablePath(ctx context.Context) (string, error) {
	path, err := processExe(ctx)
	if err != nil || path == "" {
		path, err = os.Executable()
		if err != nil {
			return "", fault.Wrap(fault.KindNotFound, "executable path", err)
		}
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fault.Wrap(fault.KindNotFound, "executable path", err)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fault.Wrap(fault.KindNotFound, "executable path", err)
	}
	return abs, nil
}

func processExe(ctx context.Context) (string, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return "", err
	}
	return p.ExeWithContext(ctx)
}
