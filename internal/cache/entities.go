// Package cache holds the normalized in-memory entity store shared by every
// view of a chat session, plus the query views derived from it.
package cache

import (
	"errors"
	"time"
)

// FailedPrefix starts the id of every message whose send failed. Server ids
// never carry it.
const FailedPrefix = "ERROR/"

var (
	// ErrNotFound is returned when an id is not present in the store.
	ErrNotFound = errors.New("cache: entity not found")
	// ErrEmptyID is returned when an entity without an id is written.
	ErrEmptyID = errors.New("cache: entity id is empty")
	// ErrStateMismatch is returned when a message's state tag disagrees with
	// its id regime (failed messages must use FailedPrefix, others must not).
	ErrStateMismatch = errors.New("cache: message state does not match its id")
)

// State tags the lifecycle stage of a cached message.
type State int

const (
	// StatePending is a provisional message still waiting on the server.
	StatePending State = iota
	// StateConfirmed is a message carrying a server-assigned id.
	StateConfirmed
	// StateFailed is a tombstone for a send that failed and can be retried.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// User is immutable once fetched.
type User struct {
	ID        string
	FirstName string
	LastName  string
}

// Message references its author by id; the author is resolved through the
// store when a view is built.
type Message struct {
	ID        string
	Text      string
	CreatedBy string
	CreatedAt time.Time
	State     State
}

// MessageView is a message with its author resolved.
type MessageView struct {
	Message
	Author User
}
