package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultReadinessInterval = 10 * time.Second

// ReadinessChecker は依存先へ到達できるかを確認します。
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// Server は gRPC ヘルスチェックサーバーのライフサイクルを管理します。
type Server struct {
	listenAddr        string
	grpcServer        *grpc.Server
	health            *health.Server
	readiness         ReadinessChecker
	readinessInterval time.Duration
	logger            *slog.Logger
}

// New は標準ヘルスサービスとリフレクションを登録した gRPC サーバーを構築します。
func New(listenAddr string, readiness ReadinessChecker, logger *slog.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := grpc.NewServer(opts...)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	reflection.Register(srv)

	return &Server{
		listenAddr:        listenAddr,
		grpcServer:        srv,
		health:            healthSrv,
		readiness:         readiness,
		readinessInterval: defaultReadinessInterval,
		logger:            logger,
	}
}

// SyncReadiness は readiness の結果をヘルスサービスの状態へ反映します。
func (s *Server) SyncReadiness(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if s.readiness != nil {
		if err := s.readiness.Check(ctx); err != nil {
			s.logger.WarnContext(ctx, "readiness check failed", slog.Any("error", err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	return status
}

// Run はサーバーを起動し、コンテキストがキャンセルされると GracefulStop します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}

	s.SyncReadiness(ctx)
	go s.watch(ctx)
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}()

	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	return nil
}

func (s *Server) watch(ctx context.Context) {
	t := time.NewTicker(s.readinessInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SyncReadiness(ctx)
		}
	}
}

// GracefulStop はサーバーを安全に停止します。
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}
