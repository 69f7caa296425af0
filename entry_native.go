//go:build (darwin || freebsd || linux || netbsd || windows) && (amd64 || arm64)

package hostbridge

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
	"github.com/obinnaokechukwu/hostbridge/internal/marshal"
)

// EntryTable holds C function pointers that native code calls to complete
// callbacks on the active bridge. Their C signatures are
//
//	uintptr_t string_void(uintptr_t handle, const char *arg);
//	uintptr_t map_void(uintptr_t handle, const char *json);
//	uintptr_t failure(uintptr_t handle, int32_t kind, const char *description);
//	uintptr_t string_void_token(const char *token, const char *arg);
//	uintptr_t map_void_token(const char *token, const char *json);
//	uintptr_t log(int32_t level, const char *msg);
//
// A NULL text argument is delivered as Null, distinct from "". Each function
// returns 0 on success, otherwise the ErrorKind of the failure (255 when the
// failure has no kind).
type EntryTable struct {
	StringVoid      uintptr
	MapVoid         uintptr
	Failure         uintptr
	StringVoidToken uintptr
	MapVoidToken    uintptr
	Log             uintptr
}

// Pre-registered callbacks to avoid hitting purego's callback limit.
// These are created once and shared by every bridge.
var (
	entryOnce  sync.Once
	entryTable EntryTable
)

// EntryPoints returns the C-callable entry points, creating them on first use.
func EntryPoints() (EntryTable, error) {
	entryOnce.Do(func() {
		entryTable = EntryTable{
			StringVoid:      purego.NewCallback(stringVoidTrampoline),
			MapVoid:         purego.NewCallback(mapVoidTrampoline),
			Failure:         purego.NewCallback(failureTrampoline),
			StringVoidToken: purego.NewCallback(stringVoidTokenTrampoline),
			MapVoidToken:    purego.NewCallback(mapVoidTokenTrampoline),
			Log:             purego.NewCallback(logTrampoline),
		}
	})
	return entryTable, nil
}

const statusUnclassified = 255

func entryStatus(err error) uintptr {
	if err == nil {
		return 0
	}
	if k := fault.KindOf(err); k != fault.KindUnknown {
		return uintptr(k)
	}
	return statusUnclassified
}

// recoverNative keeps a Go panic from unwinding into native frames. A strict
// bridge re-panics so the process stops loudly.
func recoverNative(entry string, rc *uintptr) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("panic in %s: %v", entry, r)
	Logger().Error(err, "native entry point failed")
	if b := active.Load(); b != nil {
		b.log.Error(err, "native entry point failed")
		if b.cfg.Registry.Strict {
			panic(r)
		}
	}
	*rc = statusUnclassified
}

// nativeText reads a C string argument, logging on the bridge if it is malformed.
func nativeText(b *Bridge, entry string, p *byte) (NullString, error) {
	s, err := marshal.GoString(p)
	if err != nil {
		err = fault.Wrap(fault.KindBadArgument, entry, err)
		b.log.Error(err, "unreadable argument from native code")
	}
	return s, err
}

func stringVoidTrampoline(_ purego.CDecl, h uintptr, arg *byte) (rc uintptr) {
	defer recoverNative("string_void", &rc)
	b, err := activeBridge()
	if err != nil {
		return entryStatus(err)
	}
	text, err := nativeText(b, "string_void", arg)
	if err != nil {
		return entryStatus(b.CallFailure(Handle(h), err))
	}
	return entryStatus(b.CallStringVoid(Handle(h), text))
}

func mapVoidTrampoline(_ purego.CDecl, h uintptr, payload *byte) (rc uintptr) {
	defer recoverNative("map_void", &rc)
	b, err := activeBridge()
	if err != nil {
		return entryStatus(err)
	}
	text, err := nativeText(b, "map_void", payload)
	if err != nil {
		return entryStatus(b.CallFailure(Handle(h), err))
	}
	return entryStatus(b.CallMapVoid(Handle(h), text))
}

func failureTrampoline(_ purego.CDecl, h uintptr, kind int32, description *byte) (rc uintptr) {
	defer recoverNative("failure", &rc)
	b, err := activeBridge()
	if err != nil {
		return entryStatus(err)
	}
	desc, _ := marshal.GoString(description)
	k := fault.Kind(kind)
	if k <= fault.KindUnknown || k > fault.KindUnsupported {
		k = fault.KindUnknown
	}
	return entryStatus(b.CallFailure(Handle(h), fault.New(k, "native", desc.String)))
}

func stringVoidTokenTrampoline(_ purego.CDecl, token *byte, arg *byte) (rc uintptr) {
	defer recoverNative("string_void_token", &rc)
	b, err := activeBridge()
	if err != nil {
		return entryStatus(err)
	}
	tok, _ := marshal.GoString(token)
	text, err := nativeText(b, "string_void_token", arg)
	if err != nil {
		return entryStatus(err)
	}
	return entryStatus(b.CallStringVoidToken(tok.String, text))
}

func mapVoidTokenTrampoline(_ purego.CDecl, token *byte, payload *byte) (rc uintptr) {
	defer recoverNative("map_void_token", &rc)
	b, err := activeBridge()
	if err != nil {
		return entryStatus(err)
	}
	tok, _ := marshal.GoString(token)
	text, err := nativeText(b, "map_void_token", payload)
	if err != nil {
		return entryStatus(err)
	}
	return entryStatus(b.CallMapVoidToken(tok.String, text))
}

func logTrampoline(_ purego.CDecl, level int32, msg *byte) (rc uintptr) {
	defer recoverNative("log", &rc)
	text, _ := marshal.GoString(msg)
	log := Logger()
	if b := active.Load(); b != nil {
		log = b.log
	}
	logNative(log, NativeLogLevel(level), text.String)
	return 0
}
