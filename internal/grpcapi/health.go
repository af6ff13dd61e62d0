// Package grpcapi serves the standard gRPC health protocol so supervisors
// and local tooling can tell whether proximity monitoring is armed.
package grpcapi

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/service"
	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

// MonitorService is the health service name tracking pairing state.
const MonitorService = "deauth.monitor"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(MonitorService, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	return &Server{grpc: gs, health: hs, logger: logger}
}

// HandshakeListener marks the monitor SERVING after a successful handshake
// and NOT_SERVING once the chain can no longer produce credentials.
// Transient failures leave the status unchanged.
func (s *Server) HandshakeListener() service.HandshakeListener {
	return func(_ types.PairingMessage, err error) {
		switch {
		case err == nil:
			s.health.SetServingStatus(MonitorService, healthpb.HealthCheckResponse_SERVING)
		case service.IsFatalPairing(err):
			s.logger.Error("monitor disarmed until re-enrollment", "err", err)
			s.health.SetServingStatus(MonitorService, healthpb.HealthCheckResponse_NOT_SERVING)
		}
	}
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Shutdown stops gracefully, forcing a stop if ctx expires first.
func (s *Server) Shutdown(ctx context.Context) {
	s.health.Shutdown()

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
