package cache

import (
	"strings"
	"sync"
)

// Store is the single source of truth for a chat session: users and messages
// keyed by id, each kept in the order this client first saw them.
//
// All mutations are serialized by one lock, so ReplaceMessageID is an atomic
// check-then-act: a settlement that lost the race finds its source id gone
// and gets ErrNotFound instead of corrupting the list.
type Store struct {
	mu       sync.RWMutex
	users    *table[User]
	messages *table[Message]
	version  uint64

	watchers *watchers
}

// Snapshot is a consistent read of the whole store at one version.
type Snapshot struct {
	Version  uint64
	Users    []User
	Messages []Message
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    newTable[User](),
		messages: newTable[Message](),
		watchers: newWatchers(),
	}
}

// Version increases by one for every completed mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// User looks up a user by id.
func (s *Store) User(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.get(id)
}

// Message looks up a message by id.
func (s *Store) Message(id string) (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages.get(id)
}

// Users returns every cached user in fetch order.
func (s *Store) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.list()
}

// Messages returns every cached message in store order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messages.list()
}

// Snapshot returns users and messages read under a single lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Version:  s.version,
		Users:    s.users.list(),
		Messages: s.messages.list(),
	}
}

// UpsertUser writes a user. An existing id keeps its position.
func (s *Store) UpsertUser(u User) error {
	if u.ID == "" {
		return ErrEmptyID
	}
	s.mutate(func() { s.users.upsert(u.ID, u) })
	return nil
}

// EnsureUser stores u unless a user with the same id is already cached, and
// returns whichever user is cached afterwards. Cached users are never
// overwritten.
func (s *Store) EnsureUser(u User) (User, error) {
	if u.ID == "" {
		return User{}, ErrEmptyID
	}

	s.mu.Lock()
	if existing, ok := s.users.get(u.ID); ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.users.upsert(u.ID, u)
	s.version++
	s.mu.Unlock()

	s.watchers.broadcast()
	return u, nil
}

// UpsertMessage writes a message. An existing id keeps its position; a new
// id is appended at the tail.
func (s *Store) UpsertMessage(m Message) error {
	if err := checkMessage(m); err != nil {
		return err
	}
	s.mutate(func() { s.messages.upsert(m.ID, m) })
	return nil
}

// UpsertAll writes a batch of users followed by a batch of messages as a
// single mutation.
func (s *Store) UpsertAll(users []User, msgs []Message) error {
	for _, u := range users {
		if u.ID == "" {
			return ErrEmptyID
		}
	}
	for _, m := range msgs {
		if err := checkMessage(m); err != nil {
			return err
		}
	}

	s.mutate(func() {
		for _, u := range users {
			s.users.upsert(u.ID, u)
		}
		for _, m := range msgs {
			s.messages.upsert(m.ID, m)
		}
	})
	return nil
}

// ReplaceMessageID installs m under m.ID at the position currently held by
// oldID. It returns ErrNotFound, without mutating anything, when oldID is no
// longer cached.
func (s *Store) ReplaceMessageID(oldID string, m Message) error {
	if err := checkMessage(m); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.messages.rename(oldID, m.ID, m); err != nil {
		s.mu.Unlock()
		return err
	}
	s.version++
	s.mu.Unlock()

	s.watchers.broadcast()
	return nil
}

// Watch subscribes to store mutations. The returned channel receives a
// signal after every mutation (coalesced) and is closed by Unwatch.
func (s *Store) Watch() (int64, <-chan struct{}) {
	return s.watchers.register()
}

// Unwatch removes a subscription created by Watch.
func (s *Store) Unwatch(id int64) {
	s.watchers.unregister(id)
}

func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.version++
	s.mu.Unlock()

	s.watchers.broadcast()
}

func checkMessage(m Message) error {
	if m.ID == "" {
		return ErrEmptyID
	}
	if (m.State == StateFailed) != strings.HasPrefix(m.ID, FailedPrefix) {
		return ErrStateMismatch
	}
	return nil
}
