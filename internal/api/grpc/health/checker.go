// Package health keeps the gRPC health status in line with the store.
package health

import (
	"context"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/knowledgebase-server/internal/logger"
	"github.com/dtroode/knowledgebase-server/internal/model"
)

// ServiceName is the health service name reported for the auth core, in
// addition to the server wide "" entry.
const ServiceName = "knowledgebase.auth"

const pingTimeout = 2 * time.Second

// Checker pings the store and flips the serving status.
type Checker struct {
	server *health.Server
	store  model.Pinger
	logger *logger.Logger

	serving bool
}

func NewChecker(store model.Pinger, logger *logger.Logger) *Checker {
	return &Checker{
		server: health.NewServer(),
		store:  store,
		logger: logger,
	}
}

// Server returns the grpc.health.v1 implementation to register.
func (c *Checker) Server() healthpb.HealthServer {
	return c.server
}

// Check pings the store once and updates the status.
func (c *Checker) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	err := c.store.Ping(ctx)
	serving := err == nil

	status := healthpb.HealthCheckResponse_SERVING
	if !serving {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ServiceName, status)

	if serving != c.serving {
		if serving {
			c.logger.Info("Health: store reachable")
		} else {
			c.logger.Warn("Health: store unreachable", "error", err)
		}
		c.serving = serving
	}

	return serving
}

// Run checks every interval until ctx is done, then marks the server as
// shutting down.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}
