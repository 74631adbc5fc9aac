package grpc

import (
	"context"
	"time"

	"gatekeeper-backend/internal/api/grpc/interceptor"
	"gatekeeper-backend/internal/logger"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// ReviewServiceName is the health-check service name of the review core.
const ReviewServiceName = "gatekeeper.review"

type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the standard gRPC health service for orchestrators. The
// review service is SERVING only while the database answers pings.
type Server struct {
	*gogrpc.Server
	health *health.Server
	db     Pinger
}

func NewServer(db Pinger) *Server {
	grpcServer := gogrpc.NewServer(gogrpc.UnaryInterceptor(interceptor.Unary()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ReviewServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	return &Server{Server: grpcServer, health: healthServer, db: db}
}

// Probe pings the database once and records the review service status.
func (s *Server) Probe(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st := grpc_health_v1.HealthCheckResponse_SERVING
	if err := s.db.Ping(pingCtx); err != nil {
		logger.Warn("Database ping failed", "error", err)
		st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ReviewServiceName, st)
	return st
}

// MonitorDatabase probes until ctx is done.
func (s *Server) MonitorDatabase(ctx context.Context, interval time.Duration) {
	s.Probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Shutdown marks every service NOT_SERVING and stops the server gracefully.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.GracefulStop()
}
