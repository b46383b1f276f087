package data

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned when a user id matches no stored user.
var ErrUserNotFound = errors.New("user not found")

// User is a chat participant as the server stores it.
type User struct {
	ID        string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// Message is a posted message. CreatedAt is the time the author wrote it;
// for a retried message that is the time of the first attempt.
type Message struct {
	ID        string
	Text      string
	UserID    string
	CreatedAt time.Time
	SavedAt   time.Time
}

// UserRepository is implemented by every storage backend.
type UserRepository interface {
	CreateUser(ctx context.Context, firstName, lastName string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
}

// MessageRepository is implemented by every storage backend. ListMessages
// returns messages oldest first.
type MessageRepository interface {
	SaveMessage(ctx context.Context, text, userID string, createdAt time.Time) (*Message, error)
	ListMessages(ctx context.Context) ([]*Message, error)
}
