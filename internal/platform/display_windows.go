//go:build windows

package platform

import (
	"golang.org/x/sys/windows"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// PROCESS_PER_MONITOR_DPI_AWARE from shellscalingapi.h.
const processPerMonitorDPIAware = 2

var (
	shcore                     = windows.NewLazySystemDLL("shcore.dll")
	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
)

// EnableHighDPI marks the process as per-monitor DPI aware.
// Windows only allows this once per process; later calls report the
// HRESULT as an error.
func EnableHighDPI() error {
	if err := procSetProcessDpiAwareness.Find(); err != nil {
		return fault.Wrap(fault.KindUnsupported, "enable high dpi", err)
	}
	hr, _, _ := procSetProcessDpiAwareness.Call(processPerMonitorDPIAware)
	if int32(hr) < 0 {
		return fault.Errorf(fault.KindIO, "enable high dpi", "SetProcessDpiAwareness failed: HRESULT %#08x", uint32(hr))
	}
	return nil
}
