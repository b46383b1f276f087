package reconcile

import (
	"context"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/cache"
)

// Handle tracks one in-flight submission or retry.
type Handle struct {
	// LocalID is the id the message was cached under when the attempt
	// started: the provisional id for a submission, the tombstone id for a
	// retry.
	LocalID string

	done chan struct{}
	msg  cache.Message
	err  error
}

func newHandle(localID string) *Handle {
	return &Handle{LocalID: localID, done: make(chan struct{})}
}

// Done is closed once the attempt has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the attempt settles or ctx ends. On success it returns
// the confirmed message. On failure it returns the tombstone now standing
// in the cache together with the remote error.
func (h *Handle) Wait(ctx context.Context) (cache.Message, error) {
	select {
	case <-h.done:
		return h.msg, h.err
	case <-ctx.Done():
		return cache.Message{}, ctx.Err()
	}
}

// finish must be called exactly once.
func (h *Handle) finish(m cache.Message, err error) {
	h.msg = m
	h.err = err
	close(h.done)
}
