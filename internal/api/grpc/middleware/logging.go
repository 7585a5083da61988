package middleware

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/knowledgebase-server/internal/logger"
)

// Logging is a unary interceptor that logs every call with its status.
type Logging struct {
	logger *logger.Logger
}

func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// HandleGRPC stores a method scoped logger on the context for the handler
// and logs the outcome once the call returns.
func (l *Logging) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	log := l.logger.With("method", info.FullMethod)

	resp, err := handler(logger.IntoContext(ctx, log), req)

	code := status.Code(err)
	dur := time.Since(start).Milliseconds()

	switch code {
	case codes.OK:
		log.Debug("gRPC: request completed", "duration_ms", dur, "status", code.String())
	case codes.Internal, codes.Unknown, codes.DataLoss, codes.Unavailable:
		log.Error("gRPC: request failed", "duration_ms", dur, "status", code.String(), "error", err)
	default:
		log.Warn("gRPC: request completed", "duration_ms", dur, "status", code.String(), "error", err)
	}

	return resp, err
}
