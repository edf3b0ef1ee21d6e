package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	eventredis "github.com/ogurasousui/codex-ats-pipeline/internal/adapters/events/redis"
	"github.com/ogurasousui/codex-ats-pipeline/internal/adapters/http/handler"
	"github.com/ogurasousui/codex-ats-pipeline/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/company"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/interview"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/member"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/notification"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/sla"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/user"
	"github.com/ogurasousui/codex-ats-pipeline/internal/platform/config"
	pg "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
	"github.com/ogurasousui/codex-ats-pipeline/internal/platform/logging"
	"github.com/ogurasousui/codex-ats-pipeline/internal/platform/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.Log, nil)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	tx := pg.NewTransactionManager(dbPool)
	readiness := pg.NewReadinessChecker(dbPool)

	companyRepo := postgres.NewCompanyRepository(dbPool)
	userRepo := postgres.NewUserRepository(dbPool)
	memberRepo := postgres.NewMemberRepository(dbPool)
	jobRepo := postgres.NewJobRepository(dbPool)
	candidateRepo := postgres.NewCandidateRepository(dbPool)
	applicationRepo := postgres.NewApplicationRepository(dbPool)
	historyRepo := postgres.NewHistoryRepository(dbPool)
	interviewRepo := postgres.NewInterviewRepository(dbPool)
	notificationRepo := postgres.NewNotificationRepository(dbPool)
	slaRepo := postgres.NewSLARepository(dbPool)

	companySvc := company.NewService(companyRepo, nil, tx)
	userSvc := user.NewService(userRepo, nil, tx)
	memberSvc := member.NewService(memberRepo, nil, tx)
	jobSvc := job.NewService(jobRepo, memberSvc, nil, tx)
	candidateSvc := candidate.NewService(candidateRepo, candidateRepo, nil, tx)
	notificationSvc := notification.NewService(notificationRepo, memberSvc, nil, tx)

	stageHooks := []pipeline.PostCommitHook{notificationSvc}
	breachHooks := []sla.BreachHook{notificationSvc}
	if cfg.Redis.Enabled() {
		client := eventredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer client.Close()
		publisher := eventredis.NewPublisher(client, cfg.Redis.Channel)
		stageHooks = append(stageHooks, publisher)
		breachHooks = append(breachHooks, publisher)
		logger.Info("redis event publisher enabled", slog.String("channel", cfg.Redis.Channel))
	}

	pipelineSvc := pipeline.NewService(pipeline.Deps{
		Applications: applicationRepo,
		History:      historyRepo,
		Jobs:         jobRepo,
		Candidates:   candidateRepo,
		Activities:   candidateRepo,
		Members:      memberSvc,
		Hooks:        stageHooks,
		Logger:       logger,
		Tx:           tx,
	})
	interviewSvc := interview.NewService(interview.Deps{
		Repo:         interviewRepo,
		Applications: applicationRepo,
		Members:      memberSvc,
		Activities:   candidateRepo,
		Notifier:     notificationSvc,
		Logger:       logger,
		Tx:           tx,
	})
	evaluator := sla.NewEvaluator(slaRepo, cfg.SLA.AtRiskRatio, nil, tx)
	sweeper := sla.NewSweeper(evaluator, companySvc, breachHooks, cfg.SLA.SweepInterval, logger)

	app := handler.NewApp(handler.Services{
		Companies:     companySvc,
		Users:         userSvc,
		Members:       memberSvc,
		Jobs:          jobSvc,
		Candidates:    candidateSvc,
		Pipeline:      pipelineSvc,
		Interviews:    interviewSvc,
		Notifications: notificationSvc,
		SLA:           evaluator,
		Readiness:     readiness,
	}, handler.Options{
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTIssuer:      cfg.Auth.JWTIssuer,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Logger:         logger,
	})
	grpcServer := server.New(cfg.Server.ListenAddr, readiness, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", cfg.HTTP.ListenAddr))
		return app.Listen(cfg.HTTP.ListenAddr)
	})
	g.Go(func() error {
		<-gctx.Done()
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	g.Go(func() error {
		logger.Info("gRPC health server listening", slog.String("addr", cfg.Server.ListenAddr))
		return grpcServer.Run(gctx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
