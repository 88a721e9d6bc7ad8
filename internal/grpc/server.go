package grpcserver

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"userSupplement/internal/auth"
	"userSupplement/internal/config"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// NewGRPCServer builds a server with the query API and the health service registered.
func NewGRPCServer(jwtSecret string, s *Server) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			loggingInterceptor,
			auth.NewUnaryAuthInterceptor(jwtSecret, healthCheckMethod),
		),
	)
	RegisterQueryServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// StartGRPC starts the gRPC server on the given address and returns a shutdown function.
func StartGRPC(cfg *config.Config, s *Server) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}

	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := NewGRPCServer(cfg.Auth.JWTSecret, s)
	go func() {
		if err := srv.Serve(lis); err != nil {
			log.Error().Str("component", "grpc").Err(err).Msg("serve failed")
		}
	}()
	log.Info().Str("component", "grpc").Str("address", lis.Addr().String()).Msg("query API listening")

	return func(ctx context.Context) error {
		done := make(chan struct{})
		go func() { srv.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}, nil
}

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	ev := log.Debug()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Str("component", "grpc").
		Str("method", info.FullMethod).
		Str("code", status.Code(err).String()).
		Dur("took", time.Since(start)).
		Msg("handled call")
	return resp, err
}
