package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var (
	jobRowColumns   = []string{"id", "company_id", "title", "department", "recruiter_id", "status", "created_at", "updated_at"}
	stageRowColumns = []string{"id", "job_id", "name", "position", "mandatory", "created_at"}
)

func TestJobRepository_Create_InsertsStages(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewJobRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO jobs (company_id, title, department, recruiter_id, status, created_at, updated_at)")).
		WithArgs("company-1", "Backend Engineer", "Eng", nil, job.StatusOpen, now, now).
		WillReturnRows(pgxmock.NewRows(jobRowColumns).AddRow("job-1", "company-1", "Backend Engineer", "Eng", nil, "open", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pipeline_stages (job_id, name, position, mandatory, created_at)")).
		WithArgs("job-1", "Applied", 0, true, now).
		WillReturnRows(pgxmock.NewRows(stageRowColumns).AddRow("stage-1", "job-1", "Applied", 0, true, now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pipeline_stages (job_id, name, position, mandatory, created_at)")).
		WithArgs("job-1", "Screening", 1, false, now).
		WillReturnRows(pgxmock.NewRows(stageRowColumns).AddRow("stage-2", "job-1", "Screening", 1, false, now))

	created, err := repo.Create(context.Background(), &job.Job{
		CompanyID:  "company-1",
		Title:      "Backend Engineer",
		Department: "Eng",
		Status:     job.StatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
		Stages: []*job.Stage{
			{Name: "Applied", Position: 0, Mandatory: true, CreatedAt: now},
			{Name: "Screening", Position: 1, CreatedAt: now},
		},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != "job-1" || len(created.Stages) != 2 || created.Stages[1].ID != "stage-2" {
		t.Fatalf("unexpected job: %+v", created)
	}
	if created.RecruiterID != nil {
		t.Fatalf("expected nil recruiter, got %v", *created.RecruiterID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestJobRepository_FindByID_LoadsStages(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewJobRepository(mock)
	now := time.Now().UTC()
	recruiter := "user-1"

	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE company_id = $1 AND id = $2")).
		WithArgs("company-1", "job-1").
		WillReturnRows(pgxmock.NewRows(jobRowColumns).AddRow("job-1", "company-1", "Designer", "", &recruiter, "draft", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM pipeline_stages")).
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows(stageRowColumns).
			AddRow("stage-1", "job-1", "Applied", 0, true, now).
			AddRow("stage-2", "job-1", "Offer", 1, false, now))

	found, err := repo.FindByID(context.Background(), "company-1", "job-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if found.Status != job.StatusDraft || len(found.Stages) != 2 {
		t.Fatalf("unexpected job: %+v", found)
	}
	if found.RecruiterID == nil || *found.RecruiterID != "user-1" {
		t.Fatalf("expected recruiter user-1, got %v", found.RecruiterID)
	}
}

func TestJobRepository_FindByID_OtherCompany(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewJobRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs WHERE company_id = $1 AND id = $2")).
		WithArgs("company-2", "job-1").
		WillReturnRows(pgxmock.NewRows(jobRowColumns))

	if _, err := repo.FindByID(context.Background(), "company-2", "job-1"); !errors.Is(err, job.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestJobRepository_FindStageByID_NotFound(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewJobRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE j.company_id = $1 AND s.id = $2")).
		WithArgs("company-1", "stage-x").
		WillReturnRows(pgxmock.NewRows(stageRowColumns))

	if _, err := repo.FindStageByID(context.Background(), "company-1", "stage-x"); !errors.Is(err, job.ErrStageNotFound) {
		t.Fatalf("expected ErrStageNotFound, got %v", err)
	}
}

func TestTranslateJobPgError(t *testing.T) {
	t.Parallel()

	if !errors.Is(translateJobPgError(&pgconn.PgError{Code: uniqueViolationCode}), job.ErrDuplicateStageName) {
		t.Fatalf("expected duplicate stage name mapping")
	}
	fk := &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "jobs_recruiter_id_fkey"}
	if !errors.Is(translateJobPgError(fk), job.ErrRecruiterNotMember) {
		t.Fatalf("expected recruiter mapping")
	}
}
