package main

import (
	"context"
	"errors"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/normalize"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListUsers returns every user in creation order
func (s *Server) ListUsers(ctx context.Context) ([]remote.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.log.Error("list users failed", "error", err)
		return nil, status.Errorf(codes.Internal, "failed to list users")
	}

	out := make([]remote.User, 0, len(users))
	for _, u := range users {
		out = append(out, toRemoteUser(u))
	}
	return out, nil
}

// ListMessages returns every message, oldest first, with its author inline
func (s *Server) ListMessages(ctx context.Context) ([]remote.Message, error) {
	msgs, err := s.msgs.ListMessages(ctx)
	if err != nil {
		s.log.Error("list messages failed", "error", err)
		return nil, status.Errorf(codes.Internal, "failed to list messages")
	}

	// One users query resolves every author
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.log.Error("list users failed", "error", err)
		return nil, status.Errorf(codes.Internal, "failed to list users")
	}
	byID := make(map[string]remote.User, len(users))
	for _, u := range users {
		byID[u.ID] = toRemoteUser(u)
	}

	out := make([]remote.Message, 0, len(msgs))
	for _, m := range msgs {
		author, ok := byID[m.UserID]
		if !ok {
			s.log.Warn("message author missing", "message_id", m.ID, "user_id", m.UserID)
			author = remote.User{ID: m.UserID}
		}
		out = append(out, toRemoteMessage(m, author))
	}
	return out, nil
}

// AddMessage validates and stores a message. A retried message keeps the
// creation time of its first attempt so it sorts where it was written.
func (s *Server) AddMessage(ctx context.Context, in remote.AddMessageInput) (remote.Message, error) {
	text := normalize.Text(in.Text)
	if text == "" {
		return remote.Message{}, status.Errorf(codes.InvalidArgument, "text is required")
	}
	if in.UserID == "" {
		return remote.Message{}, status.Errorf(codes.InvalidArgument, "userId is required")
	}

	// Lookup author; the message is returned with it inline
	user, err := s.users.GetUserByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return remote.Message{}, status.Errorf(codes.NotFound, "user %s not found", in.UserID)
		}
		s.log.Error("get user failed", "user_id", in.UserID, "error", err)
		return remote.Message{}, status.Errorf(codes.Internal, "failed to look up user")
	}

	now := s.now().UTC()
	createdAt := now
	if in.IsRetry && !in.CreatedAt.IsZero() && in.CreatedAt.Before(now) {
		createdAt = in.CreatedAt
	}

	// Stored verbatim; escaping is up to whoever renders it
	saved, err := s.msgs.SaveMessage(ctx, text, user.ID, createdAt)
	if err != nil {
		s.log.Error("save message failed", "user_id", user.ID, "error", err)
		return remote.Message{}, status.Errorf(codes.Internal, "failed to save message")
	}

	s.log.Info("message saved", "message_id", saved.ID, "user_id", user.ID, "retry", in.IsRetry)
	return toRemoteMessage(saved, toRemoteUser(user)), nil
}

func toRemoteUser(u *data.User) remote.User {
	return remote.User{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

func toRemoteMessage(m *data.Message, author remote.User) remote.Message {
	return remote.Message{
		ID:        m.ID,
		Text:      m.Text,
		CreatedBy: author,
		CreatedAt: m.CreatedAt,
	}
}
