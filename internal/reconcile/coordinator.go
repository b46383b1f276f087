package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/cache"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/metrics"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/normalize"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
)

var (
	// ErrEmptyText rejects a submission whose text is blank after trimming.
	ErrEmptyText = errors.New("reconcile: message text is empty")

	// ErrNoAuthor rejects a submission by a user without an id.
	ErrNoAuthor = errors.New("reconcile: message has no author")

	// ErrInvalidRecord is reported when the server answers with a message
	// that could not be a confirmed record.
	ErrInvalidRecord = errors.New("reconcile: invalid server record")

	// ErrClosed is returned for work started after Close.
	ErrClosed = errors.New("reconcile: session closed")
)

// Coordinator performs optimistic writes: it caches a message before the
// server has seen it and settles the cached entry when the call returns.
type Coordinator struct {
	store  *cache.Store
	svc    remote.Service
	policy *Policy
	opts   Options

	mu       sync.Mutex
	closed   bool
	retrying map[string]struct{}
	wg       sync.WaitGroup
}

// NewCoordinator returns a coordinator writing into store and sending through
// svc. Failures go to policy.
func NewCoordinator(store *cache.Store, svc remote.Service, policy *Policy, opts Options) *Coordinator {
	return &Coordinator{
		store:    store,
		svc:      svc,
		policy:   policy,
		opts:     opts.withDefaults(),
		retrying: make(map[string]struct{}),
	}
}

// Submit caches text as a pending message by author at the tail of the
// message list and sends it. The message is visible in the store when
// Submit returns; the returned Handle reports how it settled.
//
// The remote call is not tied to ctx's cancellation: once submitted, a
// message always settles.
func (c *Coordinator) Submit(ctx context.Context, text string, author cache.User) (*Handle, error) {
	text = normalize.Text(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if author.ID == "" {
		return nil, ErrNoAuthor
	}

	pending := cache.Message{
		ID:        c.opts.NewID(),
		Text:      text,
		CreatedBy: author.ID,
		CreatedAt: c.opts.Now().UTC(),
		State:     cache.StatePending,
	}
	if err := c.begin(); err != nil {
		return nil, err
	}
	if _, err := c.store.EnsureUser(author); err != nil {
		c.wg.Done()
		return nil, fmt.Errorf("cache author: %w", err)
	}
	if err := c.store.UpsertMessage(pending); err != nil {
		c.wg.Done()
		return nil, fmt.Errorf("cache pending message: %w", err)
	}
	c.opts.Metrics.Submissions.Inc()

	h := newHandle(pending.ID)
	in := remote.AddMessageInput{Text: text, UserID: author.ID}
	go c.send(ctx, pending.ID, in, h, nil)
	return h, nil
}

// begin registers one in-flight attempt, unless the coordinator is closed.
func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.wg.Add(1)
	return nil
}

// send runs one addMessage call for the entry cached under localID and
// settles it. after, when set, runs just before the handle is finished.
func (c *Coordinator) send(ctx context.Context, localID string, in remote.AddMessageInput, h *Handle, after func()) {
	defer c.wg.Done()

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.Timeout)
	defer cancel()

	got, err := c.svc.AddMessage(callCtx, in)
	var result cache.Message
	if err == nil {
		result, err = c.confirm(got, in)
	}
	if err == nil {
		c.settle(localID, in, result)
	} else {
		result = c.fail(localID, in, err)
	}

	if after != nil {
		after()
	}
	h.finish(result, err)
}

// confirm validates the server's record and caches its author.
func (c *Coordinator) confirm(got remote.Message, in remote.AddMessageInput) (cache.Message, error) {
	if got.ID == "" || strings.HasPrefix(got.ID, cache.FailedPrefix) {
		return cache.Message{}, fmt.Errorf("%w: id %q", ErrInvalidRecord, got.ID)
	}

	authorID := got.CreatedBy.ID
	if authorID == "" {
		authorID = in.UserID
	} else if _, err := c.store.EnsureUser(cache.User(got.CreatedBy)); err != nil {
		return cache.Message{}, fmt.Errorf("cache author: %w", err)
	}

	created := got.CreatedAt
	if created.IsZero() {
		created = c.opts.Now().UTC()
	}
	return cache.Message{
		ID:        got.ID,
		Text:      got.Text,
		CreatedBy: authorID,
		CreatedAt: created,
		State:     cache.StateConfirmed,
	}, nil
}

func (c *Coordinator) settle(localID string, in remote.AddMessageInput, confirmed cache.Message) {
	log := c.opts.Logger.With("local_id", localID, "id", confirmed.ID)

	err := c.store.ReplaceMessageID(localID, confirmed)
	switch {
	case err == nil:
		log.Debug("message confirmed", "retry", in.IsRetry)
	case errors.Is(err, cache.ErrNotFound):
		// already settled by someone else
		log.Debug("stale settlement ignored")
		c.opts.Metrics.Stale.Inc()
	default:
		log.Error("could not install confirmed message", "error", err)
	}
	if in.IsRetry {
		c.policy.Resolved(localID)
	}

	c.count(in, metrics.OutcomeConfirmed)
}

// fail is the single place a failed attempt is handed to the policy. It
// returns the tombstone that stands for the attempt afterwards.
func (c *Coordinator) fail(localID string, in remote.AddMessageInput, err error) cache.Message {
	outcome := metrics.OutcomeFailed
	if errors.Is(err, ErrInvalidRecord) {
		outcome = metrics.OutcomeInvalid
	}
	c.count(in, outcome)

	tomb, ok := c.policy.Observe(Failure{Op: OpAddMessage, Input: in, Attempt: localID, Err: err})
	if !ok {
		// retries leave the existing tombstone untouched
		tomb, _ = c.store.Message(localID)
	}
	return tomb
}

func (c *Coordinator) count(in remote.AddMessageInput, outcome string) {
	if in.IsRetry {
		c.opts.Metrics.Retries.WithLabelValues(outcome).Inc()
		return
	}
	c.opts.Metrics.Settlements.WithLabelValues(outcome).Inc()
}

// Close stops accepting new attempts and waits for in-flight ones to settle
// or for ctx to end.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
