package platform

import (
	"errors"
	"io/fs"
	"time"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// SetFileModifiedTime sets both the access and modification time of path to
// t, truncated to whole seconds.
func SetFileModifiedTime(path string, t time.Time) error {
	if path == "" {
		return fault.New(fault.KindBadArgument, "set file time", "empty path")
	}
	return classify("set file time", setTimes(path, time.Unix(t.Unix(), 0)))
}

// TouchFile sets both the access and modification time of path to the
// current time.
func TouchFile(path string) error {
	if path == "" {
		return fault.New(fault.KindBadArgument, "touch", "empty path")
	}
	return classify("touch", touch(path))
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fault.Wrap(fault.KindNotFound, op, err)
	case errors.Is(err, errors.ErrUnsupported):
		return fault.Wrap(fault.KindUnsupported, op, err)
	default:
		return fault.Wrap(fault.KindIO, op, err)
	}
}
