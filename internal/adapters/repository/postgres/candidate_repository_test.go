package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var (
	candidateRowColumns = []string{"id", "company_id", "name", "email", "phone", "skills", "resume_url", "years_of_experience", "source", "created_at", "updated_at"}
	activityRowColumns  = []string{"id", "company_id", "candidate_id", "job_candidate_id", "type", "description", "actor_id", "metadata", "created_at"}
)

func TestCandidateRepository_Create_Duplicate(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCandidateRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO candidates")).
		WithArgs("company-1", "Jane", "jane@example.com", "", []string{}, "", (*int)(nil), "", now, now).
		WillReturnError(&pgconn.PgError{Code: uniqueViolationCode})

	_, err := repo.Create(context.Background(), &candidate.Candidate{CompanyID: "company-1", Name: "Jane", Email: "jane@example.com", CreatedAt: now, UpdatedAt: now})
	if !errors.Is(err, candidate.ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
}

func TestCandidateRepository_List_EscapesSearch(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCandidateRepository(mock)
	now := time.Now().UTC()
	years := 5

	mock.ExpectQuery(regexp.QuoteMeta("WHERE company_id = $1 AND (name ILIKE $2 OR email ILIKE $2)")).
		WithArgs("company-1", `%50\%%`, 11, 0).
		WillReturnRows(pgxmock.NewRows(candidateRowColumns).
			AddRow("cand-1", "company-1", "Jane", "jane@example.com", "", []string{"go"}, "", &years, "referral", now, now))

	candidates, next, err := repo.List(context.Background(), candidate.ListCandidatesFilter{CompanyID: "company-1", Search: " 50% ", Limit: 10})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(candidates) != 1 || next != "" {
		t.Fatalf("unexpected page: %d next=%q", len(candidates), next)
	}
	if candidates[0].YearsOfExperience == nil || *candidates[0].YearsOfExperience != 5 || candidates[0].Skills[0] != "go" {
		t.Fatalf("unexpected candidate: %+v", candidates[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCandidateRepository_CreateActivity_DefaultsMetadata(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCandidateRepository(mock)
	now := time.Now().UTC()
	jcID := "jc-1"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO candidate_activities")).
		WithArgs("company-1", "cand-1", "jc-1", candidate.ActivityStageChange, "Moved from Applied to Screening", nil, map[string]any{}, now).
		WillReturnRows(pgxmock.NewRows(activityRowColumns).
			AddRow("act-1", "company-1", "cand-1", &jcID, "stage_change", "Moved from Applied to Screening", nil, map[string]any{}, now))

	created, err := repo.CreateActivity(context.Background(), &candidate.Activity{
		CompanyID:      "company-1",
		CandidateID:    "cand-1",
		JobCandidateID: &jcID,
		Type:           candidate.ActivityStageChange,
		Description:    "Moved from Applied to Screening",
		CreatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateActivity returned error: %v", err)
	}
	if created.Type != candidate.ActivityStageChange || created.ActorID != nil {
		t.Fatalf("unexpected activity: %+v", created)
	}
}

func TestCandidateRepository_FindByID_NotFound(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewCandidateRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta("FROM candidates WHERE company_id = $1 AND id = $2")).
		WithArgs("company-1", "cand-x").
		WillReturnRows(pgxmock.NewRows(candidateRowColumns))

	if _, err := repo.FindByID(context.Background(), "company-1", "cand-x"); !errors.Is(err, candidate.ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
}
