package reconcile

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/cache"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
)

// Whatever order the server answers in, the list keeps submission order and
// every submission ends up as exactly one entry.
func TestCoordinator_RandomSettlementOrder(t *testing.T) {
	const n = 25
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 5; round++ {
		f := newFakeRemote()
		f.calls = make(chan *call, n)
		s, _ := newTestSession(t, f)
		ctx := context.Background()

		handles := make([]*Handle, n)
		calls := make([]*call, n)
		for i := 0; i < n; i++ {
			h, err := s.Submit(ctx, fmt.Sprintf("msg-%02d", i), u1)
			if err != nil {
				t.Fatalf("Submit %d failed: %v", i, err)
			}
			handles[i] = h
			calls[i] = f.next(t)
		}

		failed := map[int]bool{}
		for _, i := range rng.Perm(n) {
			if rng.Intn(3) == 0 {
				failed[i] = true
				calls[i].failNetwork()
			} else {
				calls[i].succeed(fmt.Sprintf("srv-%02d", i), remote.User(u1))
			}
			<-handles[i].Done()
		}

		msgs := s.Store().Messages()
		if len(msgs) != n {
			t.Fatalf("round %d: expected %d messages, got %d", round, n, len(msgs))
		}
		for i, m := range msgs {
			if m.Text != fmt.Sprintf("msg-%02d", i) {
				t.Fatalf("round %d: position %d holds %q", round, i, m.Text)
			}
			if IsFailed(m) != failed[i] {
				t.Fatalf("round %d: position %d failed=%v, want %v", round, i, IsFailed(m), failed[i])
			}
			if !failed[i] && m.ID != fmt.Sprintf("srv-%02d", i) {
				t.Fatalf("round %d: position %d id %q", round, i, m.ID)
			}
			if m.State == cache.StatePending {
				t.Fatalf("round %d: position %d never settled", round, i)
			}
		}
	}
}

// A second settlement for an entry that is already settled changes nothing.
func TestCoordinator_StaleSettlementIsNoop(t *testing.T) {
	f := newFakeRemote()
	s, m := newTestSession(t, f)

	h, _ := s.Submit(context.Background(), "hi", u1)
	f.next(t).succeed("m1", remote.User(u1))
	wait(t, h)
	before := s.Store().Snapshot()

	// replay the same settlement against the vanished provisional id
	s.coord.settle(h.LocalID, remote.AddMessageInput{Text: "hi", UserID: "u1"}, cache.Message{
		ID: "m1", Text: "hi", CreatedBy: "u1", State: cache.StateConfirmed,
	})

	after := s.Store().Snapshot()
	if after.Version != before.Version || len(after.Messages) != 1 {
		t.Fatalf("stale settlement mutated the cache: %+v", after)
	}
	if got := testutil.ToFloat64(m.Stale); got != 1 {
		t.Fatalf("stale settlements = %v, want 1", got)
	}
}
