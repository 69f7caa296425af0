package hostbridge

import (
	"github.com/obinnaokechukwu/hostbridge/internal/fault"
)

// textArg extracts the argument of a "text, no return" completion.
func textArg(args []any) (NullString, error) {
	if len(args) == 0 {
		return Null, nil
	}
	switch v := args[0].(type) {
	case NullString:
		return v, nil
	case string:
		return Text(v), nil
	case nil:
		return Null, nil
	default:
		return Null, fault.Errorf(fault.KindBadArgument, "callback", "want text argument, got %T", args[0])
	}
}

// mapArg extracts the argument of a "structured data, no return" completion.
func mapArg(args []any) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	switch v := args[0].(type) {
	case map[string]any:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fault.Errorf(fault.KindBadArgument, "callback", "want map argument, got %T", args[0])
	}
}

type textCallback struct {
	b  *Bridge
	fn func(NullString, error)
}

func (c textCallback) Invoke(args ...any) {
	text, err := textArg(args)
	c.b.safely("text", func() { c.fn(text, err) })
}

func (c textCallback) Fail(err error) {
	c.b.safely("text", func() { c.fn(Null, err) })
}

type mapCallback struct {
	b  *Bridge
	fn func(map[string]any, error)
}

func (c mapCallback) Invoke(args ...any) {
	m, err := mapArg(args)
	c.b.safely("map", func() { c.fn(m, err) })
}

func (c mapCallback) Fail(err error) {
	c.b.safely("map", func() { c.fn(nil, err) })
}

// httpCallback finishes an HTTP operation from a response map.
type httpCallback struct {
	b  *Bridge
	op *Operation
	fn func(HTTPResponse, error)
}

func (c httpCallback) Invoke(args ...any) {
	m, err := mapArg(args)
	var resp HTTPResponse
	if err == nil {
		resp, err = responseFromMap(m)
	}
	if err != nil {
		c.Fail(err)
		return
	}
	if !c.op.finish(OperationCompleted, nil) {
		return
	}
	c.b.log.V(1).Info("http request completed", "op", c.op.ID, "status", resp.Status)
	c.b.safely("http", func() { c.fn(resp, nil) })
}

func (c httpCallback) Fail(err error) {
	if !c.op.finish(OperationFailed, err) {
		return
	}
	c.b.log.V(1).Info("http request failed", "op", c.op.ID, "error", err.Error())
	c.b.safely("http", func() { c.fn(HTTPResponse{}, err) })
}

// downloadCallback finishes a download from the final path. A null path
// means the download failed.
type downloadCallback struct {
	b  *Bridge
	op *Operation
	fn func(string, error)
}

func (c downloadCallback) Invoke(args ...any) {
	path, err := textArg(args)
	if err == nil && !path.Valid {
		err = fault.New(fault.KindNetwork, "download", "no file was downloaded")
	}
	if err != nil {
		c.Fail(err)
		return
	}
	if !c.op.finish(OperationCompleted, nil) {
		return
	}
	c.b.log.V(1).Info("download completed", "op", c.op.ID, "path", path.String)
	c.b.safely("download", func() { c.fn(path.String, nil) })
}

func (c downloadCallback) Fail(err error) {
	if !c.op.finish(OperationFailed, err) {
		return
	}
	c.b.log.Error(err, "download failed", "op", c.op.ID, "url", c.op.Request.URL)
	c.b.safely("download", func() { c.fn("", err) })
}
