package logger

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// UnaryClientInterceptor logs method, status code and latency for each RPC.
// Failures log at warn; successes at debug.
func UnaryClientInterceptor(l *slog.Logger) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)

		attrs := []any{
			"rpc_method", method,
			"code", status.Code(err).String(),
			"duration_ms", float64(time.Since(start).Milliseconds()),
		}
		if rid := RequestID(ctx); rid != "" {
			attrs = append(attrs, "request_id", rid)
		}
		if err != nil {
			l.WarnContext(ctx, "rpc", append(attrs, "err", err)...)
			return err
		}
		l.DebugContext(ctx, "rpc", attrs...)
		return nil
	}
}
