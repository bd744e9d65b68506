// Package grpcserver runs the gRPC listener that reports service health.
package grpcserver

import (
	"context"
	"net"

	"github.com/fjod/storefront/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the name reported to health checks alongside the
// server-wide "" entry.
const ServiceName = "storefront"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

func New(opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{grpc.StatsHandler(otelgrpc.NewServerHandler())}, opts...)
	s := &Server{
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(s.grpc)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	logger.FromContext(context.Background()).Info("grpc server listening", "addr", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Drain reports NOT_SERVING so load balancers stop routing here. In-flight
// calls are not affected.
func (s *Server) Drain() {
	s.health.Shutdown()
}

// Stop drains the server and waits for in-flight calls until ctx is done,
// then closes remaining connections.
func (s *Server) Stop(ctx context.Context) {
	s.Drain()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
	}
}
