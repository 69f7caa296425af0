package hostbridge

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/obinnaokechukwu/hostbridge/internal/fault"
	"github.com/obinnaokechukwu/hostbridge/internal/marshal"
)

// HTTPRequest describes one native HTTP call.
type HTTPRequest struct {
	URL     string
	Method  string            // GET when empty
	Headers map[string]string // Request headers
	Content string            // Request body, sent when not empty
}

// HTTPResponse is the result of SendHTTPRequest.
type HTTPResponse struct {
	Status int
	// Error is the status message for statuses of 400 and above.
	Error string
	// Content is the body of text/* responses.
	Content string
	// BinaryContent is the body of any other response, nil for text.
	BinaryContent []byte
	Headers       map[string]string
}

// IsText reports whether the body was delivered as text.
func (r HTTPResponse) IsText() bool {
	return r.BinaryContent == nil
}

func (r HTTPRequest) validate(op string) error {
	if r.URL == "" {
		return fault.New(fault.KindBadArgument, op, "missing url")
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return fault.Wrap(fault.KindBadArgument, op, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fault.Errorf(fault.KindBadArgument, op, "unsupported url scheme %q", u.Scheme)
	}
	return nil
}

func (r HTTPRequest) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

func (r HTTPRequest) newRequest(ctx context.Context, userAgent string) (*http.Request, error) {
	var body io.Reader
	if r.Content != "" {
		body = strings.NewReader(r.Content)
	}
	req, err := http.NewRequestWithContext(ctx, r.method(), r.URL, body)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// toMap renders the response in the structured payload layout native code
// passes through CallMapVoid. Binary bodies travel as base64.
func (r HTTPResponse) toMap() map[string]any {
	headers := make(map[string]any, len(r.Headers))
	for k, v := range r.Headers {
		headers[k] = v
	}
	m := map[string]any{
		"status":        r.Status,
		"content":       nil,
		"binaryContent": nil,
		"headers":       headers,
	}
	if r.Status >= 400 {
		m["error"] = r.Error
	}
	if r.BinaryContent != nil {
		m["binaryContent"] = base64.StdEncoding.EncodeToString(r.BinaryContent)
	} else {
		m["content"] = r.Content
	}
	return m
}

func responseFromMap(m map[string]any) (HTTPResponse, error) {
	var r HTTPResponse
	if m == nil {
		return r, fault.New(fault.KindBadArgument, "http response", "null payload")
	}

	switch v := m["status"].(type) {
	case float64:
		r.Status = int(v)
	case int:
		r.Status = v
	default:
		return r, fault.Errorf(fault.KindBadArgument, "http response", "bad status %v", m["status"])
	}

	r.Error, _ = m["error"].(string)
	r.Content, _ = m["content"].(string)
	if s, ok := m["binaryContent"].(string); ok {
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return r, fault.Wrap(fault.KindBadArgument, "http response", err)
		}
		r.BinaryContent = b
	}

	if headers, ok := m["headers"].(map[string]any); ok {
		r.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			if s, ok := v.(string); ok {
				r.Headers[k] = s
			}
		}
	}
	return r, nil
}

// SendHTTPRequest issues req natively and calls fn with the response once it
// arrives. Transport failures reach fn as an error matching ErrNetwork; HTTP
// error statuses are ordinary responses. Invalid requests are rejected
// before anything is issued.
//
// Canceling ctx before the response is delivered abandons the operation and
// fn is never called.
func (b *Bridge) SendHTTPRequest(ctx context.Context, req HTTPRequest, fn func(HTTPResponse, error)) (*Operation, error) {
	if err := req.validate("send http request"); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fault.New(fault.KindBadArgument, "send http request", "nil callback")
	}

	op := newOperation("http", req)
	op.Handle = b.registry.Issue(httpCallback{b: b, op: op, fn: fn})

	err := b.start(ctx, op, func(ctx context.Context) func() error {
		resp, err := b.doHTTP(ctx, req)
		if err != nil {
			return func() error { return b.CallFailure(op.Handle, err) }
		}
		payload, err := marshal.EncodeMap(resp.toMap())
		if err != nil {
			return func() error { return b.CallFailure(op.Handle, fault.Wrap(fault.KindBadArgument, "send http request", err)) }
		}
		return func() error { return b.CallMapVoid(op.Handle, payload) }
	})
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (b *Bridge) doHTTP(ctx context.Context, req HTTPRequest) (HTTPResponse, error) {
	hreq, err := req.newRequest(ctx, b.cfg.HTTP.UserAgent)
	if err != nil {
		return HTTPResponse{}, fault.Wrap(fault.KindBadArgument, "send http request", err)
	}
	resp, err := b.client.Do(hreq)
	if err != nil {
		return HTTPResponse{}, fault.Wrap(fault.KindNetwork, "send http request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return HTTPResponse{}, fault.Wrap(fault.KindNetwork, "send http request", err)
	}

	out := HTTPResponse{
		Status:  resp.StatusCode,
		Headers: flattenHeaders(resp.Header),
	}
	if resp.StatusCode >= 400 {
		out.Error = statusMessage(resp)
	}
	if isText(resp.Header.Get("Content-Type")) {
		out.Content = string(body)
	} else {
		out.BinaryContent = body
	}
	return out, nil
}

func isText(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/")
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// statusMessage returns the reason phrase of the status line.
func statusMessage(resp *http.Response) string {
	msg := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	msg = strings.TrimSpace(msg)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

// start registers op and runs it on a worker. The worker is locked to its
// own OS thread, so its completion reaches the managed side the way a
// native callback would: from a thread the runtime did not create.
// run performs the request and returns the entry point call that delivers
// the result.
func (b *Bridge) start(ctx context.Context, op *Operation, run func(ctx context.Context) func() error) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = b.registry.Cancel(op.Handle)
		return ErrClosed
	}
	b.ops[op.ID] = op
	b.wg.Add(1)
	b.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stopLifetime := context.AfterFunc(b.lifetime, cancel)
	op.mu.Lock()
	op.stop = context.AfterFunc(ctx, func() { b.Cancel(op) })
	op.mu.Unlock()

	b.log.V(1).Info("operation issued", "op", op.ID, "kind", op.Kind, "url", op.Request.URL, "handle", Token(op.Handle))

	go func() {
		defer b.wg.Done()
		defer b.forget(op)
		defer stopLifetime()
		defer cancel()

		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if err := b.sem.Acquire(ctx, 1); err != nil {
			b.Cancel(op)
			return
		}
		defer b.sem.Release(1)

		call := run(ctx)
		if ctx.Err() != nil {
			b.Cancel(op)
			return
		}
		b.complete(op, call)
	}()
	return nil
}

// complete delivers the result of op unless it was canceled first.
func (b *Bridge) complete(op *Operation, call func() error) {
	if !op.claim() {
		return
	}
	if b.looper == nil {
		b.report(op, call())
		return
	}

	b.mu.Lock()
	b.posted[op.ID] = op
	b.mu.Unlock()
	err := b.looper.Post(func() {
		if !b.takePosted(op) {
			return
		}
		b.report(op, call())
	})
	if err != nil && b.takePosted(op) {
		// Without a home thread there is nobody left to deliver to.
		b.abandon(op, OperationCanceled, err, "dropping completion")
	}
}

// report logs a failed delivery. If the thread could not be registered the
// handle is still pending and nothing will retry it, so the operation is
// failed without running its callback.
func (b *Bridge) report(op *Operation, err error) {
	if err == nil {
		return
	}
	if fault.KindOf(err) == fault.KindRuntimeUnavailable {
		b.abandon(op, OperationFailed, err, "could not register delivery thread")
		return
	}
	b.log.Error(err, "could not deliver completion", "op", op.ID, "handle", Token(op.Handle))
}

// abandon retires the handle of a claimed operation without invoking its
// callback and moves the operation to state.
func (b *Bridge) abandon(op *Operation, state OperationState, err error, msg string) {
	b.log.Error(err, msg, "op", op.ID, "handle", Token(op.Handle))
	_ = b.registry.Cancel(op.Handle)
	op.finish(state, err)
}

// takePosted removes op from the completions waiting on the home thread.
// Exactly one caller gets true.
func (b *Bridge) takePosted(op *Operation) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.posted[op.ID]; !ok {
		return false
	}
	delete(b.posted, op.ID)
	return true
}

func (b *Bridge) forget(op *Operation) {
	b.mu.Lock()
	delete(b.ops, op.ID)
	b.mu.Unlock()
}
