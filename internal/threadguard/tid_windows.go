//go:build windows

package threadguard

import "golang.org/x/sys/windows"

// CurrentThreadID returns the Win32 thread ID of the calling thread.
// The caller should be locked to its OS thread for the result to stay valid.
func CurrentThreadID() (ThreadID, error) {
	return ThreadID(windows.GetCurrentThreadId()), nil
}
