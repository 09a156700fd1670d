// Package grpc exposes the daemon's readiness over the standard gRPC
// health protocol.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/emmett/murmur/internal/logging"
	"github.com/emmett/murmur/internal/stt"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service key for speech recognition.
const ServiceName = "murmur.stt"

// Server wraps the gRPC server and services
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	provider   stt.Provider
	addr       string
	interval   time.Duration
	logger     *zap.Logger
}

// Config holds server configuration
type Config struct {
	Host string
	Port int

	// PollInterval is how often provider state is re-read (default 500ms)
	PollInterval time.Duration
}

// NewServer creates a health server tracking provider.
func NewServer(cfg Config, provider stt.Provider, logger *zap.Logger) *Server {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	s := &Server{
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
		provider:   provider,
		addr:       net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		interval:   interval,
		logger:     logging.OrNop(logger),
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.sync()
	return s
}

// Serve listens on the configured address until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on lis until ctx is done, then stops gracefully.
func (s *Server) ServeListener(ctx context.Context, lis net.Listener) error {
	s.logger.Info("gRPC health server listening", zap.String("addr", lis.Addr().String()))

	go s.watch(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.sync() == stt.StateFailed {
				// a failed load never recovers
				return
			}
		}
	}
}

// sync publishes the provider state and returns it.
func (s *Server) sync() stt.LoadState {
	state := stt.StateOf(s.provider)
	status := servingStatus(state)
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
	return state
}

func servingStatus(state stt.LoadState) healthpb.HealthCheckResponse_ServingStatus {
	if state == stt.StateReady {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
