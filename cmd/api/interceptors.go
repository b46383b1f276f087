package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// loggingUnaryInterceptor logs every RPC with its outcome and counts it.
func loggingUnaryInterceptor(log *slog.Logger, m *metrics.Server) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		m.Requests.WithLabelValues(info.FullMethod, code.String()).Inc()

		attrs := []any{"method", info.FullMethod, "code", code.String(), "elapsed", time.Since(start)}
		if err != nil {
			log.Warn("rpc failed", append(attrs, "error", err)...)
		} else {
			log.Debug("rpc ok", attrs...)
		}
		return resp, err
	}
}

// faultUnaryInterceptor fails a share of the calls to the given methods
// with Unavailable, so clients can be exercised against a flaky network.
// roll returns a number in [0, 1); a call fails when roll() < rate.
func faultUnaryInterceptor(rate float64, methods map[string]bool, roll func() float64, m *metrics.Server) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if rate <= 0 || !methods[info.FullMethod] {
			return handler(ctx, req)
		}
		if roll() < rate {
			m.Injected.Inc()
			return nil, status.Errorf(codes.Unavailable, "injected failure")
		}
		return handler(ctx, req)
	}
}
