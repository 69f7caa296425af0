package hostbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// partialSuffix marks a download that is still being written.
const partialSuffix = ".tmpdl"

// Download fetches req into target and calls fn with the absolute path of
// the finished file. A relative target is resolved against the configured
// files directory. The body is written to target+".tmpdl" first and renamed
// into place only when the status is 2xx and the whole body arrived, so a
// failed download never leaves a truncated target behind.
//
// Failures reach fn with an empty path and an error matching ErrNetwork or
// ErrIO. Canceling ctx abandons the operation and fn is never called.
func (b *Bridge) Download(ctx context.Context, req HTTPRequest, target string, fn func(path string, err error)) (*Operation, error) {
	if err := req.validate("download"); err != nil {
		return nil, err
	}
	if target == "" {
		return nil, fault.New(fault.KindBadArgument, "download", "missing target path")
	}
	if fn == nil {
		return nil, fault.New(fault.KindBadArgument, "download", "nil callback")
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(b.cfg.HTTP.FilesDir, target)
	}

	op := newOperation("download", req)
	op.Handle = b.registry.Issue(downloadCallback{b: b, op: op, fn: fn})

	err := b.start(ctx, op, func(ctx context.Context) func() error {
		path, err := b.download(ctx, req, target)
		if err != nil {
			return func() error { return b.CallFailure(op.Handle, err) }
		}
		return func() error { return b.CallStringVoid(op.Handle, Text(path)) }
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (b *Bridge) download(ctx context.Context, req HTTPRequest, target string) (string, error) {
	const op = "download"

	dir := filepath.Dir(target)
	if fi, err := os.Stat(dir); err == nil && !fi.IsDir() {
		return "", fault.Errorf(fault.KindIO, op, "parent of %s is a file", target)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fault.Wrap(fault.KindIO, op, err)
	}

	partial := target + partialSuffix
	if err := removePartial(partial); err != nil {
		return "", err
	}

	hreq, err := req.newRequest(ctx, b.cfg.HTTP.UserAgent)
	if err != nil {
		return "", fault.Wrap(fault.KindBadArgument, op, err)
	}
	resp, err := b.client.Do(hreq)
	if err != nil {
		return "", fault.Wrap(fault.KindNetwork, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fault.Errorf(fault.KindNetwork, op, "%d %s", resp.StatusCode, statusMessage(resp))
	}

	if err := writePartial(partial, resp); err != nil {
		_ = os.Remove(partial)
		return "", err
	}

	// A canceled operation must not replace the target.
	if err := ctx.Err(); err != nil {
		_ = os.Remove(partial)
		return "", fault.Wrap(fault.KindNetwork, op, err)
	}
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		_ = os.Remove(partial)
		return "", fault.Errorf(fault.KindIO, op, "%s is a directory", target)
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return "", fault.Wrap(fault.KindIO, op, err)
	}

	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fault.Wrap(fault.KindIO, op, err)
	}
	b.log.V(1).Info("download written", "url", req.URL, "path", abs)
	return abs, nil
}

// removePartial clears a leftover partial file from an earlier attempt.
func removePartial(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fault.Wrap(fault.KindIO, "download", err)
	}
	if fi.IsDir() {
		return fault.Errorf(fault.KindIO, "download", "%s is a directory", path)
	}
	if err := os.Remove(path); err != nil {
		return fault.Wrap(fault.KindIO, "download", err)
	}
	return nil
}

func writePartial(path string, resp *http.Response) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fault.Wrap(fault.KindIO, "download", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fault.Wrap(fault.KindNetwork, "download", fmt.Errorf("reading body: %w", err))
	}
	if err := f.Close(); err != nil {
		return fault.Wrap(fault.KindIO, "download", err)
	}
	return nil
}
