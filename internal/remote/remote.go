// Package remote is the RPC boundary between a chat session and the chat
// server: the Service contract, its gRPC wire form and a client for it.
package remote

import (
	"context"
	"time"
)

// User is a user record as the server sends it.
type User struct {
	ID        string
	FirstName string
	LastName  string
}

// Message is a message record as the server sends it, with its author inline.
type Message struct {
	ID        string
	Text      string
	CreatedBy User
	CreatedAt time.Time
}

// AddMessageInput carries the addMessage variables. IsRetry and CreatedAt
// are only set when a failed message is being sent again.
type AddMessageInput struct {
	Text      string
	UserID    string
	IsRetry   bool
	CreatedAt time.Time
}

// Service is the remote surface a chat session consumes.
type Service interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListMessages(ctx context.Context) ([]Message, error)
	AddMessage(ctx context.Context, in AddMessageInput) (Message, error)
}
