package router

import (
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dtroode/knowledgebase-server/internal/api/grpc/middleware"
	"github.com/dtroode/knowledgebase-server/internal/logger"
)

// Router builds the gRPC server exposing grpc.health.v1 and reflection.
type Router struct {
	health healthpb.HealthServer
	logger *logger.Logger
}

func New(health healthpb.HealthServer, logger *logger.Logger) *Router {
	return &Router{health: health, logger: logger}
}

// Register returns a server with logging and panic recovery interceptors.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	recovery := middleware.NewRecovery(r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			logging.HandleGRPC,
			recovery.Unary(),
		),
		grpc.ChainStreamInterceptor(
			recovery.Stream(),
		),
	)

	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)

	return s
}
