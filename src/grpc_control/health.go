// Package grpc_control exposes the stream's liveness as the standard gRPC
// health service, so process supervisors can check the sync core.
package grpc_control

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"dashboard-sync/src/logger"
	"dashboard-sync/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported next to the server-wide "" entry.
const ServiceName = "dashboard.sync.Stream"

// -----------------------------------------------------------------------------
// HealthService
// -----------------------------------------------------------------------------

type HealthService struct {
	Logger *logger.Logger
	Addr   string

	health *health.Server
	server *grpc.Server

	mu      sync.Mutex
	serving bool
	stopped bool
}

// -----------------------------------------------------------------------------

func NewHealthService(cfg *models.MConfig, log *logger.Logger) *HealthService {
	h := &HealthService{
		Logger: log,
		Addr:   fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort),
		health: health.NewServer(),
		server: grpc.NewServer(),
	}
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	h.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(h.server, h.health)
	return h
}

// -----------------------------------------------------------------------------

// Update follows the store: SERVING while the stream is open. It is meant to
// be registered with Store.Subscribe.
func (h *HealthService) Update(snap models.MStoreSnapshot) {
	h.SetConnectionState(snap.ConnectionState)
}

// SetConnectionState flips the reported status when the open/not-open
// boundary is crossed.
func (h *HealthService) SetConnectionState(state models.MConnectionState) {
	serving := state == models.ConnectionOpen

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || serving == h.serving {
		return
	}
	h.serving = serving

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	h.Logger.Debug("Health status %s (stream %s)", status, state)
}

// -----------------------------------------------------------------------------

// Serve blocks serving on lis until Stop.
func (h *HealthService) Serve(lis net.Listener) error {
	h.Logger.Info("Starting gRPC health service on %s", lis.Addr())
	if err := h.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Start listens on grpc_host:grpc_port and serves until Stop.
func (h *HealthService) Start() error {
	lis, err := net.Listen("tcp", h.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	return h.Serve(lis)
}

// -----------------------------------------------------------------------------

// Stop reports NOT_SERVING to watchers and stops the server. Idempotent.
func (h *HealthService) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	h.mu.Unlock()

	h.health.Shutdown()
	h.server.GracefulStop()
}
