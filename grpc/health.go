package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reporting the wandering engine.
const ServiceName = "wanderer.Engine"

// HealthServer exposes the standard gRPC health service. The engine is
// SERVING while check reports true.
type HealthServer struct {
	server   *grpc.Server
	health   *health.Server
	check    func() bool
	interval time.Duration
	logger   *zap.Logger

	mu   sync.Mutex
	last healthpb.HealthCheckResponse_ServingStatus
}

// NewHealthServer creates a health server re-evaluating check every interval.
func NewHealthServer(check func() bool, interval time.Duration, logger *zap.Logger) *HealthServer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	h := &HealthServer{
		server:   grpc.NewServer(),
		health:   health.NewServer(),
		check:    check,
		interval: interval,
		logger:   logger,
		last:     healthpb.HealthCheckResponse_UNKNOWN,
	}
	healthpb.RegisterHealthServer(h.server, h.health)
	return h
}

// Refresh evaluates check and publishes the result.
func (h *HealthServer) Refresh() {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if h.check() {
		status = healthpb.HealthCheckResponse_SERVING
	}

	h.mu.Lock()
	changed := status != h.last
	h.last = status
	h.mu.Unlock()

	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	if changed {
		h.logger.Info("health status changed", zap.String("status", status.String()))
	}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (h *HealthServer) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	h.logger.Info("health endpoint listening", zap.String("addr", lis.Addr().String()))
	return h.Serve(ctx, lis)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	h.Refresh()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Refresh()
			case <-ctx.Done():
				h.health.Shutdown()
				h.server.GracefulStop()
				return
			case <-stop:
				return
			}
		}
	}()

	err := h.server.Serve(lis)
	close(stop)
	wg.Wait()
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("health server failed: %w", err)
	}
	return nil
}
