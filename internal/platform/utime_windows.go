//go:build windows

package platform

import (
	"time"

	"golang.org/x/sys/windows"
)

func setTimes(path string, t time.Time) error {
	ts := windows.NsecToTimespec(t.UnixNano())
	return windows.UtimesNano(path, []windows.Timespec{ts, ts})
}

func touch(path string) error {
	return setTimes(path, time.Now())
}
