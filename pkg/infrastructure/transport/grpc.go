package transport

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer exposes the standard gRPC health service. The overall status
// follows the checkers and is refreshed every interval.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	checks   map[string]Checker
	interval time.Duration
}

func NewHealthServer(checks map[string]Checker, interval time.Duration) *HealthServer {
	server := grpc.NewServer()
	status := health.NewServer()
	healthpb.RegisterHealthServer(server, status)
	return &HealthServer{server: server, health: status, checks: checks, interval: interval}
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	s.refresh(ctx)

	done := make(chan error, 1)
	go func() {
		done <- s.server.Serve(listener)
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.server.GracefulStop()
			return nil
		case err := <-done:
			return errors.Wrap(err, "serve grpc health")
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *HealthServer) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	overall := healthpb.HealthCheckResponse_SERVING
	for name, check := range s.checks {
		status := healthpb.HealthCheckResponse_SERVING
		if err := check.Ping(ctx); err != nil {
			log.WithError(err).WithField("check", name).Warn("health check failed")
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus("", overall)
}
