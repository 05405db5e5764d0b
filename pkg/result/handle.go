// Package result provides the single-assignment handle representing one
// dispatched message's eventual outcome.
package result

import (
	"context"
	"sync"

	"github.com/kart-io/pushgate/pkg/message"
	"github.com/kart-io/pushgate/pkg/response"
)

// Observer is invoked once when a handle reaches its terminal state.
// Exactly one of resp and err is non-nil.
type Observer func(resp *response.Response, err error)

// Handle binds one message to a single-assignment result slot holding
// either the gateway's Response or a send-layer error. A handle completes
// exactly once, ever: later completion attempts are no-ops. Observers and
// completions may arrive on any goroutine in any order; an observer
// registered after completion fires immediately on the registering
// goroutine.
type Handle struct {
	msg *message.Message

	mu        sync.Mutex
	completed bool
	resp      *response.Response
	err       error
	observers []Observer

	done chan struct{}
}

// NewHandle creates an incomplete handle bound to msg.
func NewHandle(msg *message.Message) *Handle {
	return &Handle{
		msg:  msg,
		done: make(chan struct{}),
	}
}

// Message returns the message this handle was created for.
func (h *Handle) Message() *message.Message {
	return h.msg
}

// Succeed completes the handle with a gateway response. It reports whether
// this call performed the completion; false means the handle already held
// a result and nothing changed.
func (h *Handle) Succeed(resp *response.Response) bool {
	return h.complete(resp, nil)
}

// Fail completes the handle with a send-layer error. It reports whether
// this call performed the completion.
func (h *Handle) Fail(err error) bool {
	return h.complete(nil, err)
}

func (h *Handle) complete(resp *response.Response, err error) bool {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return false
	}
	h.completed = true
	h.resp = resp
	h.err = err
	observers := h.observers
	h.observers = nil
	h.mu.Unlock()

	close(h.done)

	for _, observe := range observers {
		observe(resp, err)
	}
	return true
}

// OnComplete registers an observer for the terminal transition. Observers
// registered before completion run, in registration order, on the goroutine
// that completes the handle.
func (h *Handle) OnComplete(observe Observer) *Handle {
	h.mu.Lock()
	if !h.completed {
		h.observers = append(h.observers, observe)
		h.mu.Unlock()
		return h
	}
	resp, err := h.resp, h.err
	h.mu.Unlock()

	observe(resp, err)
	return h
}

// Done returns a channel closed when the handle completes.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Completed reports whether the handle has reached its terminal state.
func (h *Handle) Completed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed
}

// Response returns the gateway response, or nil if the handle is
// incomplete or failed.
func (h *Handle) Response() *response.Response {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.resp
}

// Err returns the send-layer error, or nil if the handle is incomplete or
// succeeded.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Wait blocks until the handle completes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (*response.Response, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.resp, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
