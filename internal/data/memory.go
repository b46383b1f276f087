package data

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/normalize"
)

// MemoryStore keeps users and messages in process memory. It backs the
// server when no database is configured and is used by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    []*User
	byID     map[string]*User
	messages []*Message
}

var (
	_ UserRepository    = (*MemoryStore)(nil)
	_ MessageRepository = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*User)}
}

func (s *MemoryStore) CreateUser(ctx context.Context, firstName, lastName string) (*User, error) {
	u := &User{
		ID:        uuid.NewString(),
		FirstName: normalize.Name(firstName),
		LastName:  normalize.Name(lastName),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.users = append(s.users, u)
	s.byID[u.ID] = u
	s.mu.Unlock()

	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) SaveMessage(ctx context.Context, text, userID string, createdAt time.Time) (*Message, error) {
	m := &Message{
		ID:        uuid.NewString(),
		Text:      text,
		UserID:    userID,
		CreatedAt: createdAt.UTC(),
		SavedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.messages = append(s.messages, m)
	s.mu.Unlock()

	cp := *m
	return &cp, nil
}

// ListMessages returns messages ordered by CreatedAt. Messages with equal
// timestamps keep their save order.
func (s *MemoryStore) ListMessages(ctx context.Context) ([]*Message, error) {
	s.mu.RLock()
	out := make([]*Message, 0, len(s.messages))
	for _, m := range s.messages {
		cp := *m
		out = append(out, &cp)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b *Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}
