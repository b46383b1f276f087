package main

import (
	"log/slog"
	"time"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/remote"
	"google.golang.org/grpc"
)

// Server implements the chat service on top of a storage backend.
type Server struct {
	users data.UserRepository
	msgs  data.MessageRepository
	log   *slog.Logger
	now   func() time.Time
}

var _ remote.Service = (*Server)(nil)

// newServer returns a ready-to-use Server wired with stores.
func newServer(users data.UserRepository, msgs data.MessageRepository, log *slog.Logger) *Server {
	return &Server{users: users, msgs: msgs, log: log, now: time.Now}
}

// registerService registers the ChatService on the given gRPC server.
func registerService(s *grpc.Server, srv *Server) {
	remote.Register(s, srv)
}
