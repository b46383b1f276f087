package reconcile

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/cache"
)

// IsFailed reports whether m is a failure tombstone. It is the only place
// the rest of the code asks that question.
func IsFailed(m cache.Message) bool {
	return m.State == cache.StateFailed
}

// Ledger is the only creator of failure tombstones.
type Ledger struct {
	store *cache.Store
	newID func() string
	now   func() time.Time

	mu        sync.Mutex
	byAttempt map[string]string // attempt id -> tombstone id
	byTomb    map[string]string // tombstone id -> attempt id
}

// NewLedger returns a ledger writing tombstones into store.
func NewLedger(store *cache.Store, newID func() string, now func() time.Time) *Ledger {
	return &Ledger{
		store:     store,
		newID:     newID,
		now:       now,
		byAttempt: make(map[string]string),
		byTomb:    make(map[string]string),
	}
}

// NewTombstoneID mints a fresh failed-message id.
func (l *Ledger) NewTombstoneID() string {
	return cache.FailedPrefix + l.newID()
}

// Record turns a failed attempt into a tombstone and returns it. The
// attempt's provisional message is converted in place when it is still
// cached. Otherwise a tombstone built from the attempt's input is appended.
// Recording the same attempt twice returns the first tombstone.
func (l *Ledger) Record(f Failure) (cache.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if id, ok := l.byAttempt[f.Attempt]; ok {
		if m, ok := l.store.Message(id); ok {
			return m, nil
		}
		delete(l.byTomb, id)
	}

	tomb := cache.Message{
		ID:        l.NewTombstoneID(),
		Text:      f.Input.Text,
		CreatedBy: f.Input.UserID,
		CreatedAt: l.now(),
		State:     cache.StateFailed,
	}

	if current, ok := l.store.Message(f.Attempt); ok && current.State == cache.StatePending {
		tomb.Text = current.Text
		tomb.CreatedBy = current.CreatedBy
		tomb.CreatedAt = current.CreatedAt
		err := l.store.ReplaceMessageID(f.Attempt, tomb)
		if err == nil {
			l.remember(f.Attempt, tomb.ID)
			return tomb, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			return cache.Message{}, fmt.Errorf("convert %s to tombstone: %w", f.Attempt, err)
		}
	}

	if err := l.store.UpsertMessage(tomb); err != nil {
		return cache.Message{}, fmt.Errorf("append tombstone: %w", err)
	}
	l.remember(f.Attempt, tomb.ID)
	return tomb, nil
}

func (l *Ledger) remember(attempt, tombID string) {
	l.byAttempt[attempt] = tombID
	l.byTomb[tombID] = attempt
}

// Forget drops the bookkeeping for a tombstone that has left the store,
// typically because a retry confirmed it.
func (l *Ledger) Forget(tombID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if attempt, ok := l.byTomb[tombID]; ok {
		delete(l.byAttempt, attempt)
		delete(l.byTomb, tombID)
	}
}

func (l *Ledger) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.byAttempt)
}
