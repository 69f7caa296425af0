//go:build darwin

package threadguard

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

const libSystemPath = "/usr/lib/libSystem.B.dylib"

var (
	tidOnce sync.Once
	tidErr  error

	pthreadThreadIDNP func(thread uintptr, id *uint64) int32
)

func loadThreadID() {
	lib, err := purego.Dlopen(libSystemPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		tidErr = fmt.Errorf("loading libSystem: %w", err)
		return
	}
	purego.RegisterLibFunc(&pthreadThreadIDNP, lib, "pthread_threadid_np")
}

// CurrentThreadID returns the system-wide unique ID of the calling thread.
// The caller should be locked to its OS thread for the result to stay valid.
func CurrentThreadID() (ThreadID, error) {
	tidOnce.Do(loadThreadID)
	if tidErr != nil {
		return 0, tidErr
	}
	var id uint64
	// A zero pthread_t means the calling thread.
	if rc := pthreadThreadIDNP(0, &id); rc != 0 {
		return 0, fmt.Errorf("pthread_threadid_np: errno %d", rc)
	}
	return ThreadID(id), nil
}
