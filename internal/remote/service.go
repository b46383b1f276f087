package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "chat.v1.ChatService"

// Full method names, as seen by interceptors.
const (
	ListUsersMethod    = "/" + ServiceName + "/ListUsers"
	ListMessagesMethod = "/" + ServiceName + "/ListMessages"
	AddMessageMethod   = "/" + ServiceName + "/AddMessage"
)

// ChatServiceServer is the wire-level handler set registered on a gRPC
// server. Register adapts any Service to it.
type ChatServiceServer interface {
	ListUsers(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListMessages(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	AddMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Register exposes svc on s as chat.v1.ChatService.
func Register(s grpc.ServiceRegistrar, svc Service) {
	s.RegisterService(&chatServiceDesc, &wireServer{svc: svc})
}

// wireServer encodes and decodes the structpb payloads around a Service.
type wireServer struct {
	svc Service
}

func (w *wireServer) ListUsers(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	users, err := w.svc.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out, err := encodeUsers(users)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode users: %v", err)
	}
	return out, nil
}

func (w *wireServer) ListMessages(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	msgs, err := w.svc.ListMessages(ctx)
	if err != nil {
		return nil, err
	}
	out, err := encodeMessages(msgs)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode messages: %v", err)
	}
	return out, nil
}

func (w *wireServer) AddMessage(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := decodeAddMessageInput(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid variables: %v", err)
	}
	msg, err := w.svc.AddMessage(ctx, in)
	if err != nil {
		return nil, err
	}
	out, err := encodeAddMessageResult(msg)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode message: %v", err)
	}
	return out, nil
}

func listUsersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).ListUsers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListUsersMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).ListUsers(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listMessagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).ListMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListMessagesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).ListMessages(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func addMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatServiceServer).AddMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AddMessageMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatServiceServer).AddMessage(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var chatServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListUsers", Handler: listUsersHandler},
		{MethodName: "ListMessages", Handler: listMessagesHandler},
		{MethodName: "AddMessage", Handler: addMessageHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chat/v1/chat.proto",
}
