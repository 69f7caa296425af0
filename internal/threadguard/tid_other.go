//go:build !linux && !windows && !darwin

package threadguard

import "github.com/obinnaokechukwu/hostbridge/internal/fault"

// CurrentThreadID is not available on this platform.
func CurrentThreadID() (ThreadID, error) {
	return 0, fault.ErrUnsupportedPlatform
}
