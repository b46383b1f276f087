package remote

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// LoggingUnaryClientInterceptor logs each failed call once, tagged with the
// class the failure will be reported as. Successful calls log at debug.
func LoggingUnaryClientInterceptor(log *slog.Logger) grpc.UnaryClientInterceptor {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		elapsed := time.Since(start)
		if err == nil {
			log.Debug("rpc ok", "method", method, "elapsed", elapsed)
			return nil
		}

		code := status.Code(err)
		if IsNetwork(Classify(err)) {
			log.Warn("network error", "method", method, "code", code.String(), "elapsed", elapsed, "error", err)
		} else {
			log.Warn("application error", "method", method, "code", code.String(), "elapsed", elapsed, "error", err)
		}
		return err
	}
}
