package reconcile

import (
	"context"
	"errors"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/cache"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/metrics"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
)

var (
	ErrNotFailed      = errors.New("reconcile: message is not a failed message")
	ErrRetryCancelled = errors.New("reconcile: retry cancelled")
	ErrRetryInFlight  = errors.New("reconcile: retry already in flight")
)

// Confirmer asks the user whether a failed message should be sent again.
type Confirmer interface {
	Confirm(ctx context.Context, m cache.Message) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, m cache.Message) bool

func (f ConfirmFunc) Confirm(ctx context.Context, m cache.Message) bool {
	if f == nil {
		return false
	}
	return f(ctx, m)
}

// Retry sends a failed message again, keeping its original creation time.
// On success the tombstone is renamed in place to the confirmed id. On
// failure the tombstone stays exactly as it was and the handle carries the
// error.
//
// A nil confirm counts as a refusal.
func (c *Coordinator) Retry(ctx context.Context, m cache.Message, confirm Confirmer) (*Handle, error) {
	if !IsFailed(m) {
		return nil, ErrNotFailed
	}
	current, ok := c.store.Message(m.ID)
	if !ok {
		return nil, cache.ErrNotFound
	}

	if err := c.reserve(current.ID); err != nil {
		return nil, err
	}
	if confirm == nil || !confirm.Confirm(ctx, current) {
		c.release(current.ID)
		c.opts.Metrics.Retries.WithLabelValues(metrics.OutcomeCancelled).Inc()
		return nil, ErrRetryCancelled
	}
	if err := c.begin(); err != nil {
		c.release(current.ID)
		return nil, err
	}

	in := remote.AddMessageInput{
		Text:      current.Text,
		UserID:    current.CreatedBy,
		IsRetry:   true,
		CreatedAt: current.CreatedAt,
	}
	h := newHandle(current.ID)
	go c.send(ctx, current.ID, in, h, func() { c.release(current.ID) })
	return h, nil
}

func (c *Coordinator) reserve(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.retrying[id]; busy {
		return ErrRetryInFlight
	}
	c.retrying[id] = struct{}{}
	return nil
}

func (c *Coordinator) release(id string) {
	c.mu.Lock()
	delete(c.retrying, id)
	c.mu.Unlock()
}
