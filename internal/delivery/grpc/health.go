package grpc

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// CartServiceName is the health service name reported for the cart API.
const CartServiceName = "vendora.Cart"

// HealthServer exposes the standard gRPC health protocol.
type HealthServer struct {
	srv    *grpc.Server
	health *health.Server
}

func NewHealthServer() *HealthServer {
	s := grpc.NewServer()
	h := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, h)
	return &HealthServer{srv: s, health: h}
}

// SetServing flips the overall and cart service status.
func (s *HealthServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(CartServiceName, status)
}

// Serve blocks until the server stops.
func (s *HealthServer) Serve(lis net.Listener) error {
	s.SetServing(true)
	slog.Info("🩺 gRPC health server starting", "addr", lis.Addr().String())
	return s.srv.Serve(lis)
}

// Stop reports NOT_SERVING to watchers and drains open calls.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
