package remote

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client implements Service over a gRPC connection. Every error it returns
// is either an *ApplicationError or a *NetworkError.
type Client struct {
	conn *grpc.ClientConn
}

var _ Service = (*Client)(nil)

// Dial creates a client for the chat server at addr. The connection is
// plaintext unless opts carry transport credentials of their own.
func Dial(addr string, log *slog.Logger, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(LoggingUnaryClientInterceptor(log)),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an existing connection. The caller keeps ownership of conn
// unless it calls Close on the returned Client.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, ListUsersMethod, &emptypb.Empty{}, out); err != nil {
		return nil, Classify(err)
	}
	users, err := decodeUsers(out)
	if err != nil {
		return nil, &ApplicationError{Code: codes.Internal, Message: err.Error()}
	}
	return users, nil
}

func (c *Client) ListMessages(ctx context.Context) ([]Message, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, ListMessagesMethod, &emptypb.Empty{}, out); err != nil {
		return nil, Classify(err)
	}
	msgs, err := decodeMessages(out)
	if err != nil {
		return nil, &ApplicationError{Code: codes.Internal, Message: err.Error()}
	}
	return msgs, nil
}

func (c *Client) AddMessage(ctx context.Context, in AddMessageInput) (Message, error) {
	req, err := encodeAddMessageInput(in)
	if err != nil {
		return Message{}, &ApplicationError{Code: codes.InvalidArgument, Message: fmt.Sprintf("encode addMessage variables: %v", err)}
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, AddMessageMethod, req, out); err != nil {
		return Message{}, Classify(err)
	}
	msg, err := decodeAddMessageResult(out)
	if err != nil {
		return Message{}, &ApplicationError{Code: codes.Internal, Message: err.Error()}
	}
	return msg, nil
}
