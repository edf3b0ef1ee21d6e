package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ogurasousui/codex-ats-pipeline/internal/platform/config"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestBuildPoolConfig(t *testing.T) {
	t.Parallel()

	dbCfg := config.DatabaseConfig{
		Host:            "localhost",
		Port:            15432,
		User:            "user",
		Password:        "pass",
		Name:            "ats",
		SSLMode:         "disable",
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}

	poolCfg, err := BuildPoolConfig(dbCfg)
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}

	if poolCfg.MaxConns != 20 {
		t.Errorf("expected MaxConns 20, got %d", poolCfg.MaxConns)
	}

	if poolCfg.MinConns != 5 {
		t.Errorf("expected MinConns 5, got %d", poolCfg.MinConns)
	}

	if poolCfg.MaxConnLifetime != 30*time.Minute {
		t.Errorf("unexpected MaxConnLifetime: %v", poolCfg.MaxConnLifetime)
	}

	if poolCfg.MaxConnIdleTime != 10*time.Minute {
		t.Errorf("unexpected MaxConnIdleTime: %v", poolCfg.MaxConnIdleTime)
	}

	if poolCfg.HealthCheckPeriod != defaultHealthCheckPeriod {
		t.Errorf("unexpected HealthCheckPeriod: %v", poolCfg.HealthCheckPeriod)
	}

	if poolCfg.ConnConfig.Database != "ats" {
		t.Errorf("expected database ats, got %s", poolCfg.ConnConfig.Database)
	}
}

func TestReadinessChecker(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	checker := NewReadinessChecker(mock)

	mock.ExpectPing()
	if err := checker.Check(context.Background()); err != nil {
		t.Fatalf("expected ping success, got %v", err)
	}

	pingErr := errors.New("connection refused")
	mock.ExpectPing().WillReturnError(pingErr)
	if err := checker.Check(context.Background()); !errors.Is(err, pingErr) {
		t.Fatalf("expected wrapped ping error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
