package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/cache"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/logger"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/metrics"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
)

// call is one AddMessage request parked until the test answers it.
type call struct {
	in    remote.AddMessageInput
	reply chan result
}

type result struct {
	msg remote.Message
	err error
}

// fakeRemote lets a test decide when and how each AddMessage settles.
type fakeRemote struct {
	mu       sync.Mutex
	users    []remote.User
	msgs     []remote.Message
	usersErr error
	msgsErr  error

	calls chan *call
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{calls: make(chan *call, 16)}
}

func (f *fakeRemote) ListUsers(ctx context.Context) ([]remote.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users, f.usersErr
}

func (f *fakeRemote) ListMessages(ctx context.Context) ([]remote.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs, f.msgsErr
}

func (f *fakeRemote) AddMessage(ctx context.Context, in remote.AddMessageInput) (remote.Message, error) {
	c := &call{in: in, reply: make(chan result, 1)}
	f.calls <- c
	select {
	case r := <-c.reply:
		return r.msg, r.err
	case <-ctx.Done():
		return remote.Message{}, remote.Classify(ctx.Err())
	}
}

// next waits for the next AddMessage request.
func (f *fakeRemote) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for AddMessage")
		return nil
	}
}

func (c *call) succeed(id string, author remote.User) {
	created := c.in.CreatedAt
	if created.IsZero() {
		created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}
	c.reply <- result{msg: remote.Message{ID: id, Text: c.in.Text, CreatedBy: author, CreatedAt: created}}
}

func (c *call) failNetwork() {
	c.reply <- result{err: &remote.NetworkError{Err: fmt.Errorf("connection reset")}}
}

func (c *call) failApplication(msg string) {
	c.reply <- result{err: &remote.ApplicationError{Code: codes.InvalidArgument, Message: msg}}
}

// sequentialIDs returns an id generator yielding p1, p2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

var (
	u1 = cache.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace"}
	u2 = cache.User{ID: "u2", FirstName: "Alan", LastName: "Turing"}
)

func newTestSession(t *testing.T, f *fakeRemote) (*Session, *metrics.Cache) {
	t.Helper()
	m := metrics.NewCache(nil)
	s := NewSession(f, Options{
		Timeout: 2 * time.Second,
		Logger:  logger.Discard(),
		Metrics: m,
		NewID:   sequentialIDs("id-"),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s, m
}

func wait(t *testing.T, h *Handle) (cache.Message, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m, err := h.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatalf("handle %s did not settle", h.LocalID)
	}
	return m, err
}

func ids(msgs []cache.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func texts(msgs []cache.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}
