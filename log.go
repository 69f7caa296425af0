package hostbridge

import (
	"sync"

	"github.com/go-logr/logr"
)

var (
	logMu  sync.RWMutex
	logger = logr.Discard()
)

// SetLogger sets the logger used by the package and by bridges created
// without WithLogger. The default discards everything.
func SetLogger(log logr.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = log
}

// Logger returns the package logger.
func Logger() logr.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// NativeLogLevel is the severity passed by native code to the log entry point.
type NativeLogLevel int32

// Log levels accepted from native code.
const (
	NativeLogError NativeLogLevel = 0
	NativeLogInfo  NativeLogLevel = 1
	NativeLogDebug NativeLogLevel = 2
	NativeLogTrace NativeLogLevel = 3
)

// String returns the string representation of the log level.
func (l NativeLogLevel) String() string {
	switch {
	case l <= NativeLogError:
		return "error"
	case l == NativeLogInfo:
		return "info"
	case l == NativeLogDebug:
		return "debug"
	default:
		return "trace"
	}
}

// logNative forwards one message from native code to log.
func logNative(log logr.Logger, level NativeLogLevel, msg string) {
	log = log.WithName("native")
	if level <= NativeLogError {
		log.Error(nil, msg)
		return
	}
	log.V(int(level) - 1).Info(msg)
}
