package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/logger"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// brokenMsgs fails every operation, emulating an unreachable database.
type brokenMsgs struct{}

func (brokenMsgs) SaveMessage(ctx context.Context, text, userID string, createdAt time.Time) (*data.Message, error) {
	return nil, errors.New("connection refused")
}
func (brokenMsgs) ListMessages(ctx context.Context) ([]*data.Message, error) {
	return nil, errors.New("connection refused")
}

func newTestServer(t *testing.T) (*Server, *data.MemoryStore, *data.User) {
	t.Helper()
	store := data.NewMemoryStore()
	u, err := store.CreateUser(context.Background(), "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return newServer(store, store, logger.Discard()), store, u
}

func TestAddMessage_Validation(t *testing.T) {
	srv, _, u := newTestServer(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   remote.AddMessageInput
		code codes.Code
	}{
		{"empty text", remote.AddMessageInput{Text: "  ", UserID: u.ID}, codes.InvalidArgument},
		{"missing user id", remote.AddMessageInput{Text: "hi"}, codes.InvalidArgument},
		{"unknown user", remote.AddMessageInput{Text: "hi", UserID: "ghost"}, codes.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := srv.AddMessage(ctx, tc.in)
			if status.Code(err) != tc.code {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
		})
	}
}

func TestAddMessage_SavesTrimmedText(t *testing.T) {
	srv, store, u := newTestServer(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return fixed }

	msg, err := srv.AddMessage(context.Background(), remote.AddMessageInput{Text: " <b>hi</b> & bye ", UserID: u.ID})
	if err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if msg.Text != "<b>hi</b> & bye" {
		t.Fatalf("text should be trimmed and otherwise untouched: %q", msg.Text)
	}
	if msg.CreatedBy.FirstName != "Ada" || !msg.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected message: %+v", msg)
	}

	saved, _ := store.ListMessages(context.Background())
	if len(saved) != 1 || saved[0].ID != msg.ID || saved[0].Text != msg.Text {
		t.Fatalf("message not persisted verbatim: %+v", saved)
	}
}

func TestAddMessage_RetryKeepsCreatedAt(t *testing.T) {
	srv, _, u := newTestServer(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return now }
	original := now.Add(-time.Minute)

	retried, err := srv.AddMessage(context.Background(), remote.AddMessageInput{
		Text: "hi", UserID: u.ID, IsRetry: true, CreatedAt: original,
	})
	if err != nil {
		t.Fatalf("AddMessage failed: %v", err)
	}
	if !retried.CreatedAt.Equal(original) {
		t.Fatalf("retry createdAt = %v, want %v", retried.CreatedAt, original)
	}

	// createdAt from a first send is ignored
	first, _ := srv.AddMessage(context.Background(), remote.AddMessageInput{Text: "hi", UserID: u.ID, CreatedAt: original})
	if !first.CreatedAt.Equal(now) {
		t.Fatalf("first send createdAt = %v, want server time", first.CreatedAt)
	}

	// a retry can't claim a time in the future
	future, _ := srv.AddMessage(context.Background(), remote.AddMessageInput{
		Text: "hi", UserID: u.ID, IsRetry: true, CreatedAt: now.Add(time.Hour),
	})
	if !future.CreatedAt.Equal(now) {
		t.Fatalf("future createdAt should be clamped, got %v", future.CreatedAt)
	}
}

func TestListMessages_ResolvesAuthors(t *testing.T) {
	srv, store, u := newTestServer(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	_, _ = store.SaveMessage(ctx, "later", u.ID, base.Add(time.Minute))
	_, _ = store.SaveMessage(ctx, "orphan", "deleted-user", base)

	msgs, err := srv.ListMessages(ctx)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "orphan" || msgs[1].Text != "later" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if msgs[0].CreatedBy.ID != "deleted-user" || msgs[1].CreatedBy.LastName != "Lovelace" {
		t.Fatalf("authors not resolved: %+v", msgs)
	}
}

func TestStorageErrorsAreInternal(t *testing.T) {
	store := data.NewMemoryStore()
	u, _ := store.CreateUser(context.Background(), "Ada", "Lovelace")
	srv := newServer(store, brokenMsgs{}, logger.Discard())

	if _, err := srv.ListMessages(context.Background()); status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
	if _, err := srv.AddMessage(context.Background(), remote.AddMessageInput{Text: "hi", UserID: u.ID}); status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}
