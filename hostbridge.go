// Package hostbridge delivers completions of native asynchronous operations
// back into a managed runtime.
//
// Managed code hands a callback to an adapter (an HTTP request, a download)
// and receives an Operation. The callback is stored in a registry and only an
// opaque handle crosses into native code. When the native side finishes, on
// whatever OS thread it happens to run, it calls one of the entry points
// (CallStringVoid, CallMapVoid, CallFailure or their C-callable forms from
// EntryPoints). The entry point registers the thread with the runtime,
// resolves the handle exactly once, and deregisters the thread again.
//
// Basic usage:
//
//	b, err := hostbridge.New(hostbridge.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer b.Shutdown(ctx)
//
//	_, err = b.SendHTTPRequest(ctx, hostbridge.HTTPRequest{URL: url}, func(resp hostbridge.HTTPResponse, err error) {
//		...
//	})
//
// The package also exposes the one-shot host queries that sit next to the
// bridge: GetExecutablePath, SetFileModifiedTime, TouchFileNow and
// InitProcess.
package hostbridge

import (
	"sync"

	"github.com/go-logr/logr"

	"github.com/obinnaokechukwu/hostbridge/internal/marshal"
)

// Version is the hostbridge release.
const Version = "0.4.0"

// NullString is a text value that may be null. Null and empty are distinct.
type NullString = marshal.NullString

// Text returns a valid NullString holding s.
func Text(s string) NullString {
	return marshal.Text(s)
}

// Null is the null text value.
var Null = marshal.Null

var initOnce sync.Once

// InitProcess runs the process start hook: it enables high DPI awareness
// when cfg asks for it. Failure is logged and never fatal. Only the first
// call has any effect.
func InitProcess(cfg Config) {
	initOnce.Do(func() {
		initProcess(cfg, Logger(), DefaultDisplay())
	})
}

func initProcess(cfg Config, log logr.Logger, display Display) {
	if !cfg.Display.HighDPI {
		return
	}
	if err := display.EnableHighDPI(); err != nil {
		log.Error(err, "could not enable high DPI awareness, using default scaling")
	}
}
