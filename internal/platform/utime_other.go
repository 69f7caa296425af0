//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !windows

package platform

import (
	"errors"
	"time"
)

func setTimes(string, time.Time) error {
	return errors.ErrUnsupported
}

func touch(string) error {
	return errors.ErrUnsupported
}
