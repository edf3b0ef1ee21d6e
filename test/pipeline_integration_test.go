//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"

	repo "github.com/ogurasousui/codex-ats-pipeline/internal/adapters/repository/postgres"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/company"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/member"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/notification"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/sla"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/user"
	"github.com/ogurasousui/codex-ats-pipeline/internal/platform/config"
	pg "github.com/ogurasousui/codex-ats-pipeline/internal/platform/db/postgres"
)

const migrationsDir = "../assets/migrations"

func TestPipelineFlowIntegration(t *testing.T) {
	cfg, err := config.Load(configPathFromEnv())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	tx := pg.NewTransactionManager(pool)
	clock := stubClock{now: time.Now().UTC()}

	companySvc := company.NewService(repo.NewCompanyRepository(pool), clock, tx)
	userSvc := user.NewService(repo.NewUserRepository(pool), clock, tx)
	memberSvc := member.NewService(repo.NewMemberRepository(pool), clock, tx)
	jobSvc := job.NewService(repo.NewJobRepository(pool), memberSvc, clock, tx)
	candidateRepo := repo.NewCandidateRepository(pool)
	candidateSvc := candidate.NewService(candidateRepo, candidateRepo, clock, tx)
	notificationSvc := notification.NewService(repo.NewNotificationRepository(pool), memberSvc, clock, tx)
	pipelineSvc := pipeline.NewService(pipeline.Deps{
		Applications: repo.NewApplicationRepository(pool),
		History:      repo.NewHistoryRepository(pool),
		Jobs:         repo.NewJobRepository(pool),
		Candidates:   candidateRepo,
		Activities:   candidateRepo,
		Members:      memberSvc,
		Hooks:        []pipeline.PostCommitHook{notificationSvc},
		Clock:        clock,
		Tx:           tx,
	})
	evaluator := sla.NewEvaluator(repo.NewSLARepository(pool), 0, stubClock{now: clock.now.Add(10 * 24 * time.Hour)}, tx)

	suffix := uuid.NewString()[:8]
	co, err := companySvc.CreateCompany(ctx, company.CreateCompanyInput{Name: "Acme", Slug: "acme-" + suffix})
	if err != nil {
		t.Fatalf("CreateCompany error: %v", err)
	}
	recruiter := mustMember(ctx, t, userSvc, memberSvc, co.ID, "recruiter-"+suffix, member.RoleRecruiter)
	watcher := mustMember(ctx, t, userSvc, memberSvc, co.ID, "watcher-"+suffix, member.RoleHiringManager)

	posting, err := jobSvc.CreateJob(ctx, job.CreateJobInput{CompanyID: co.ID, Title: "Backend Engineer", RecruiterID: &recruiter})
	if err != nil {
		t.Fatalf("CreateJob error: %v", err)
	}
	if len(posting.Stages) < 3 {
		t.Fatalf("expected default stages, got %d", len(posting.Stages))
	}
	screening := posting.Stages[1]
	interviewStage := posting.Stages[2]

	candidates := make([]string, 0, 3)
	for i := range 3 {
		c, err := candidateSvc.CreateCandidate(ctx, candidate.CreateCandidateInput{
			CompanyID: co.ID,
			Name:      fmt.Sprintf("Candidate %d", i),
			Email:     fmt.Sprintf("candidate-%d-%s@example.com", i, suffix),
		})
		if err != nil {
			t.Fatalf("CreateCandidate error: %v", err)
		}
		if _, err := pipelineSvc.Apply(ctx, pipeline.ApplyInput{CompanyID: co.ID, JobID: posting.ID, CandidateID: c.ID, ActorID: recruiter}); err != nil {
			t.Fatalf("Apply error: %v", err)
		}
		candidates = append(candidates, c.ID)
	}

	apps, err := pipelineSvc.ListApplications(ctx, pipeline.ListApplicationsInput{CompanyID: co.ID, JobID: posting.ID})
	if err != nil {
		t.Fatalf("ListApplications error: %v", err)
	}
	if len(apps.Applications) != 3 {
		t.Fatalf("expected 3 applications, got %d", len(apps.Applications))
	}
	first := apps.Applications[0]

	moved, err := pipelineSvc.MoveCandidate(ctx, pipeline.MoveInput{
		CompanyID:      co.ID,
		JobCandidateID: first.ID,
		TargetStageID:  screening.ID,
		MovedBy:        recruiter,
		Comment:        "phone screen",
	})
	if err != nil {
		t.Fatalf("MoveCandidate error: %v", err)
	}
	if moved.Application.CurrentStageID != screening.ID {
		t.Fatalf("expected current stage %s, got %s", screening.ID, moved.Application.CurrentStageID)
	}

	_, err = pipelineSvc.MoveCandidate(ctx, pipeline.MoveInput{CompanyID: co.ID, JobCandidateID: first.ID, TargetStageID: screening.ID, MovedBy: recruiter})
	if !errors.Is(err, pipeline.ErrAlreadyInStage) {
		t.Fatalf("expected ErrAlreadyInStage, got %v", err)
	}

	bulk, err := pipelineSvc.BulkMove(ctx, pipeline.BulkMoveInput{
		CompanyID:     co.ID,
		JobID:         posting.ID,
		CandidateIDs:  append(candidates, uuid.NewString()),
		TargetStageID: interviewStage.ID,
		MovedBy:       recruiter,
	})
	if err != nil {
		t.Fatalf("BulkMove error: %v", err)
	}
	if bulk.MovedCount != 3 || bulk.FailedCount != 1 {
		t.Fatalf("unexpected bulk result: moved=%d failed=%d", bulk.MovedCount, bulk.FailedCount)
	}

	history, err := pipelineSvc.GetStageHistory(ctx, co.ID, first.ID)
	if err != nil {
		t.Fatalf("GetStageHistory error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history rows, got %d", len(history))
	}
	open := 0
	for _, h := range history {
		if h.IsOpen() {
			open++
			if h.StageID != interviewStage.ID {
				t.Fatalf("open history row should be the interview stage, got %s", h.StageID)
			}
		}
	}
	if open != 1 {
		t.Fatalf("expected exactly one open history row, got %d", open)
	}

	inbox, err := notificationSvc.List(ctx, notification.ListInput{CompanyID: co.ID, UserID: watcher, UnreadOnly: true})
	if err != nil {
		t.Fatalf("List notifications error: %v", err)
	}
	if inbox.UnreadCount == 0 {
		t.Fatal("expected the watcher to receive notifications")
	}
	own, err := notificationSvc.List(ctx, notification.ListInput{CompanyID: co.ID, UserID: recruiter})
	if err != nil {
		t.Fatalf("List notifications error: %v", err)
	}
	if own.UnreadCount != 0 {
		t.Fatalf("actor should not be notified about own moves, got %d", own.UnreadCount)
	}

	if _, err := evaluator.ReplaceConfig(ctx, sla.ReplaceConfigInput{
		CompanyID: co.ID,
		Configs:   []sla.ConfigInput{{StageName: interviewStage.Name, ThresholdDays: 5}},
	}); err != nil {
		t.Fatalf("ReplaceConfig error: %v", err)
	}
	breaches, err := evaluator.CheckBreaches(ctx, co.ID)
	if err != nil {
		t.Fatalf("CheckBreaches error: %v", err)
	}
	if len(breaches) != 3 {
		t.Fatalf("expected 3 breaches, got %d", len(breaches))
	}
	for _, b := range breaches {
		if b.DaysOverdue != b.DaysInStage-5 {
			t.Fatalf("unexpected overdue days: %+v", b)
		}
	}
}

func mustMember(ctx context.Context, t *testing.T, users user.UseCase, members member.UseCase, companyID, name string, role member.Role) string {
	t.Helper()

	u, err := users.CreateUser(ctx, user.CreateUserInput{Email: name + "@example.com", Name: name})
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if _, err := members.AddMember(ctx, member.AddMemberInput{CompanyID: companyID, UserID: u.ID, Role: role}); err != nil {
		t.Fatalf("AddMember error: %v", err)
	}
	return u.ID
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}
