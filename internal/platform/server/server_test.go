package server

import (
	"context"
	"errors"
	"testing"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type stubReadiness struct {
	err error
}

func (s *stubReadiness) Check(context.Context) error { return s.err }

func TestSyncReadiness_ReflectsReadiness(t *testing.T) {
	t.Parallel()

	readiness := &stubReadiness{}
	srv := New("127.0.0.1:0", readiness, nil)
	ctx := context.Background()

	if got := srv.SyncReadiness(ctx); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", got)
	}
	resp, err := srv.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check returned error: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("unexpected status %v", resp.GetStatus())
	}

	readiness.err = errors.New("db down")
	if got := srv.SyncReadiness(ctx); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected NOT_SERVING, got %v", got)
	}
	resp, err = srv.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check returned error: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("unexpected status %v", resp.GetStatus())
	}
}

func TestSyncReadiness_NilReadinessIsServing(t *testing.T) {
	t.Parallel()

	srv := New("127.0.0.1:0", nil, nil)
	if got := srv.SyncReadiness(context.Background()); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", got)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := New("127.0.0.1:0", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}
