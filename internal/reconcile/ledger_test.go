package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/cache"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
)

func newTestLedger() (*cache.Store, *Ledger) {
	store := cache.NewStore()
	now := func() time.Time { return time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC) }
	return store, NewLedger(store, sequentialIDs("tok-"), now)
}

func TestLedger_ConvertsProvisionalInPlace(t *testing.T) {
	store, l := newTestLedger()
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	_ = store.UpsertMessage(cache.Message{ID: "p1", Text: "a", CreatedBy: "u1", CreatedAt: created, State: cache.StatePending})
	_ = store.UpsertMessage(cache.Message{ID: "m2", Text: "b", CreatedBy: "u2", State: cache.StateConfirmed})

	tomb, err := l.Record(Failure{Op: OpAddMessage, Attempt: "p1", Input: remote.AddMessageInput{Text: "a", UserID: "u1"}})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if tomb.ID != "ERROR/tok-1" || !IsFailed(tomb) || !tomb.CreatedAt.Equal(created) {
		t.Fatalf("unexpected tombstone: %+v", tomb)
	}
	if got := ids(store.Messages()); strings.Join(got, ",") != "ERROR/tok-1,m2" {
		t.Fatalf("tombstone should take the provisional slot: %v", got)
	}
}

func TestLedger_IdempotentPerAttempt(t *testing.T) {
	store, l := newTestLedger()
	_ = store.UpsertMessage(cache.Message{ID: "p1", Text: "a", CreatedBy: "u1", State: cache.StatePending})
	f := Failure{Op: OpAddMessage, Attempt: "p1", Input: remote.AddMessageInput{Text: "a", UserID: "u1"}}

	first, err := l.Record(f)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	second, err := l.Record(f)
	if err != nil {
		t.Fatalf("second Record failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("same attempt produced two tombstones: %s, %s", first.ID, second.ID)
	}
	if n := len(store.Messages()); n != 1 {
		t.Fatalf("expected 1 message, got %d", n)
	}
}

func TestLedger_AppendsWhenProvisionalMissing(t *testing.T) {
	store, l := newTestLedger()
	_ = store.UpsertMessage(cache.Message{ID: "m1", Text: "old", CreatedBy: "u2", State: cache.StateConfirmed})

	tomb, err := l.Record(Failure{Op: OpAddMessage, Attempt: "never-cached", Input: remote.AddMessageInput{Text: "lost", UserID: "u1"}})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	msgs := store.Messages()
	if len(msgs) != 2 || msgs[1].ID != tomb.ID {
		t.Fatalf("tombstone should be appended: %v", ids(msgs))
	}
	if tomb.Text != "lost" || tomb.CreatedBy != "u1" || !tomb.CreatedAt.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("tombstone not built from the attempt input: %+v", tomb)
	}
}

func TestLedger_UniqueTombstones(t *testing.T) {
	store, l := newTestLedger()
	seen := map[string]bool{}
	for _, attempt := range []string{"p1", "p2", "p3"} {
		_ = store.UpsertMessage(cache.Message{ID: attempt, Text: "same", CreatedBy: "u1", State: cache.StatePending})
		tomb, err := l.Record(Failure{Op: OpAddMessage, Attempt: attempt, Input: remote.AddMessageInput{Text: "same", UserID: "u1"}})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if seen[tomb.ID] {
			t.Fatalf("duplicate tombstone id %s", tomb.ID)
		}
		seen[tomb.ID] = true
	}
}

func TestIsFailed(t *testing.T) {
	cases := []struct {
		m    cache.Message
		want bool
	}{
		{cache.Message{ID: "p1", State: cache.StatePending}, false},
		{cache.Message{ID: "m1", State: cache.StateConfirmed}, false},
		{cache.Message{ID: "ERROR/x", State: cache.StateFailed}, true},
	}
	for _, tc := range cases {
		if got := IsFailed(tc.m); got != tc.want {
			t.Errorf("IsFailed(%s) = %v, want %v", tc.m.ID, got, tc.want)
		}
		// the tag and the id prefix never disagree for cached messages
		if got := strings.HasPrefix(tc.m.ID, cache.FailedPrefix); got != tc.want {
			t.Errorf("prefix check for %s = %v, want %v", tc.m.ID, got, tc.want)
		}
	}
}

func TestPolicy_OnlyFirstSendsCreateTombstones(t *testing.T) {
	store, l := newTestLedger()
	var buf bytes.Buffer
	p := NewPolicy(slog.New(slog.NewTextHandler(&buf, nil)), l)

	netErr := &remote.NetworkError{Err: errors.New("reset")}
	if _, ok := p.Observe(Failure{Op: OpListMessages, Err: netErr}); ok {
		t.Fatalf("list failures must not create tombstones")
	}
	retry := remote.AddMessageInput{Text: "x", UserID: "u1", IsRetry: true}
	if _, ok := p.Observe(Failure{Op: OpAddMessage, Attempt: "ERROR/t", Input: retry, Err: netErr}); ok {
		t.Fatalf("retry failures must not create tombstones")
	}
	if n := len(store.Messages()); n != 0 {
		t.Fatalf("expected an untouched cache, got %d messages", n)
	}

	appErr := &remote.ApplicationError{Message: "nope"}
	if _, ok := p.Observe(Failure{Op: OpAddMessage, Attempt: "p1", Input: remote.AddMessageInput{Text: "x", UserID: "u1"}, Err: appErr}); !ok {
		t.Fatalf("first-send failure should create a tombstone")
	}

	out := buf.String()
	if !strings.Contains(out, "network error") || !strings.Contains(out, "application error") {
		t.Fatalf("failures should be logged by class: %q", out)
	}
}

func TestLedger_ForgetsRetriedTombstones(t *testing.T) {
	store, l := newTestLedger()
	_ = store.UpsertMessage(cache.Message{ID: "p1", Text: "a", CreatedBy: "u1", State: cache.StatePending})

	tomb, err := l.Record(Failure{Op: OpAddMessage, Attempt: "p1", Input: remote.AddMessageInput{Text: "a", UserID: "u1"}})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if n := l.tracked(); n != 1 {
		t.Fatalf("tracked = %d, want 1", n)
	}
	l.Forget("unknown")
	l.Forget(tomb.ID)
	if n := l.tracked(); n != 0 {
		t.Fatalf("tracked = %d after Forget, want 0", n)
	}
}

func TestLedger_ReleasedAfterSuccessfulRetry(t *testing.T) {
	f := newFakeRemote()
	s, _ := newTestSession(t, f)
	ctx := context.Background()
	yes := ConfirmFunc(func(context.Context, cache.Message) bool { return true })

	for i := 0; i < 3; i++ {
		h, _ := s.Submit(ctx, "flaky", u1)
		f.next(t).failNetwork()
		tomb, _ := wait(t, h)

		rh, err := s.Retry(ctx, tomb, yes)
		if err != nil {
			t.Fatalf("Retry failed: %v", err)
		}
		f.next(t).succeed(fmt.Sprintf("m%d", i), remote.User(u1))
		if _, err := wait(t, rh); err != nil {
			t.Fatalf("retry failed: %v", err)
		}
	}
	if n := s.ledger.tracked(); n != 0 {
		t.Fatalf("ledger still tracks %d attempts", n)
	}
}
