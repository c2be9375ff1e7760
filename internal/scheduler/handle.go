package scheduler

import (
	"context"
	"encoding/json"
	"sync"
)

// Handle is the completion side of one enqueued call. It resolves
// exactly once, with either the raw API result or an error; the
// enqueuer may wait on it or drop it.
type Handle struct {
	done chan struct{}
	once sync.Once

	result json.RawMessage
	err    error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) resolve(result json.RawMessage) {
	h.once.Do(func() {
		h.result = result
		close(h.done)
	})
}

func (h *Handle) fail(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// Done is closed once the call finished, either way.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the call completes or ctx is cancelled.
func (h *Handle) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.result, h.err
	}
}
