//go:build linux

package threadguard

import "golang.org/x/sys/unix"

// CurrentThreadID returns the kernel thread ID of the calling thread.
// The caller should be locked to its OS thread for the result to stay valid.
func CurrentThreadID() (ThreadID, error) {
	return ThreadID(unix.Gettid()), nil
}
