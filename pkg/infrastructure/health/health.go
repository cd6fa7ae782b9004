package health

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name under which the storefront reports its status.
const ServiceName = "woodstore"

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Monitor struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
}

func NewMonitor(pinger Pinger, interval time.Duration) *Monitor {
	return &Monitor{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
	}
}

// Register exposes the standard gRPC health service on srv.
func (m *Monitor) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, m.server)
}

// Check pings the database once and publishes the result.
func (m *Monitor) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := m.pinger.PingContext(ctx); err != nil {
		log.WithError(err).Warn("database health check failed")
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	m.server.SetServingStatus("", status)
	m.server.SetServingStatus(ServiceName, status)
	return status
}

// Run checks the database every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.server.Shutdown()
			return nil
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
