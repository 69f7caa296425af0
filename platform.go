package hostbridge

import (
	"context"
	"time"

	"github.com/obinnaokechukwu/hostbridge/internal/platform"
)

// Paths answers filesystem queries about the host.
type Paths interface {
	ExecutablePath(ctx context.Context) (string, error)
	SetFileModifiedTime(path string, t time.Time) error
	TouchFile(path string) error
}

// Display configures how the process is scaled on screen.
type Display interface {
	EnableHighDPI() error
}

type hostPaths struct{}

func (hostPaths) ExecutablePath(ctx context.Context) (string, error) {
	return platform.ExecutablePath(ctx)
}

func (hostPaths) SetFileModifiedTime(path string, t time.Time) error {
	return platform.SetFileModifiedTime(path, t)
}

func (hostPaths) TouchFile(path string) error {
	return platform.TouchFile(path)
}

type hostDisplay struct{}

func (hostDisplay) EnableHighDPI() error {
	return platform.EnableHighDPI()
}

// DefaultPaths returns the Paths implementation for the running platform.
func DefaultPaths() Paths {
	return hostPaths{}
}

// DefaultDisplay returns the Display implementation for the running platform.
func DefaultDisplay() Display {
	return hostDisplay{}
}

// GetExecutablePath returns the absolute, symlink-free path of the running
// executable. ok is false if it cannot be determined.
func GetExecutablePath() (path string, ok bool) {
	path, err := platform.ExecutablePath(context.Background())
	if err != nil {
		Logger().V(1).Info("executable path unavailable", "error", err.Error())
		return "", false
	}
	return path, true
}

// SetFileModifiedTime sets the access and modification time of path to
// epochMillis, truncated to whole seconds. Missing files fail with
// ErrNotFound, other failures with ErrIO.
func SetFileModifiedTime(path string, epochMillis int64) error {
	return platform.SetFileModifiedTime(path, time.UnixMilli(epochMillis))
}

// TouchFileNow sets the access and modification time of path to now.
func TouchFileNow(path string) error {
	return platform.TouchFile(path)
}
