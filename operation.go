package hostbridge

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/obinnaokechukwu/hostbridge/internal/handles"
)

// Handle is the opaque token native code holds for a pending callback.
type Handle = handles.Handle

// OperationState is the lifecycle state of an Operation.
type OperationState int32

const (
	OperationIssued OperationState = iota
	OperationCompleted
	OperationFailed
	OperationCanceled
)

// String returns the name of the state.
func (s OperationState) String() string {
	switch s {
	case OperationIssued:
		return "issued"
	case OperationCompleted:
		return "completed"
	case OperationFailed:
		return "failed"
	case OperationCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Operation is one in-flight native request.
type Operation struct {
	ID      string // Unique ID for log correlation
	Kind    string // "http" or "download"
	Handle  Handle // Handle native code resolves on completion
	Request HTTPRequest

	mu      sync.Mutex
	state   OperationState
	claimed bool
	err     error
	done    chan struct{}
	stop    func() bool
}

func newOperation(kind string, req HTTPRequest) *Operation {
	return &Operation{
		ID:      uuid.NewString(),
		Kind:    kind,
		Request: req,
		done:    make(chan struct{}),
	}
}

// State returns the current state.
func (o *Operation) State() OperationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the failure delivered to the operation, if any.
func (o *Operation) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

// Done is closed when the operation leaves the Issued state.
func (o *Operation) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation finishes or ctx is done.
func (o *Operation) Wait(ctx context.Context) (OperationState, error) {
	select {
	case <-o.done:
		return o.State(), nil
	case <-ctx.Done():
		return o.State(), ctx.Err()
	}
}

// claim reserves the operation for delivery. Once claimed it can no longer
// be canceled, and a claim fails if it already was.
func (o *Operation) claim() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != OperationIssued || o.claimed {
		return false
	}
	o.claimed = true
	return true
}

// cancel moves an unclaimed operation to Canceled.
func (o *Operation) cancel() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != OperationIssued || o.claimed {
		return false
	}
	o.finishLocked(OperationCanceled, nil)
	return true
}

// finish records the outcome delivered through the handle. It reports
// false if the operation already left Issued.
func (o *Operation) finish(state OperationState, err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != OperationIssued {
		return false
	}
	o.finishLocked(state, err)
	return true
}

func (o *Operation) finishLocked(state OperationState, err error) {
	o.state = state
	o.err = err
	if o.stop != nil {
		o.stop()
	}
	close(o.done)
}
