package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/interview"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var (
	interviewRowColumns = []string{"id", "company_id", "job_candidate_id", "scheduled_at", "duration_minutes", "mode", "location", "status", "created_by", "created_at", "updated_at"}
	feedbackRowColumns  = []string{"id", "company_id", "interview_id", "interviewer_id", "rating", "recommendation", "notes", "created_at"}
)

func TestInterviewRepository_Create_InsertsPanel(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewInterviewRepository(mock)
	now := time.Now().UTC()
	at := now.Add(48 * time.Hour)
	creator := "user-1"

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO interviews")).
		WithArgs("company-1", "jc-1", at, 60, interview.ModeVideo, "", interview.StatusScheduled, "user-1", now, now).
		WillReturnRows(pgxmock.NewRows(interviewRowColumns).
			AddRow("iv-1", "company-1", "jc-1", at, 60, "video", "", "scheduled", &creator, now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO interview_panelists (interview_id, user_id) VALUES ($1, $2)")).
		WithArgs("iv-1", "user-2").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO interview_panelists (interview_id, user_id) VALUES ($1, $2)")).
		WithArgs("iv-1", "user-3").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := repo.Create(context.Background(), &interview.Interview{
		CompanyID:       "company-1",
		JobCandidateID:  "jc-1",
		ScheduledAt:     at,
		DurationMinutes: 60,
		Mode:            interview.ModeVideo,
		Status:          interview.StatusScheduled,
		Panel:           []string{"user-2", "user-3"},
		CreatedBy:       "user-1",
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != "iv-1" || len(created.Panel) != 2 || created.CreatedBy != "user-1" {
		t.Fatalf("unexpected interview: %+v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInterviewRepository_FindByID_LoadsPanelAndFeedback(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewInterviewRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM interviews WHERE company_id = $1 AND id = $2")).
		WithArgs("company-1", "iv-1").
		WillReturnRows(pgxmock.NewRows(interviewRowColumns).
			AddRow("iv-1", "company-1", "jc-1", now, 45, "onsite", "Room A", "completed", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM interview_panelists")).
		WithArgs([]string{"iv-1"}).
		WillReturnRows(pgxmock.NewRows([]string{"interview_id", "user_id"}).AddRow("iv-1", "user-2"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM interview_feedback")).
		WithArgs([]string{"iv-1"}).
		WillReturnRows(pgxmock.NewRows(feedbackRowColumns).
			AddRow("fb-1", "company-1", "iv-1", "user-2", 4, "yes", "solid", now))

	found, err := repo.FindByID(context.Background(), "company-1", "iv-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if !found.HasPanelist("user-2") || len(found.Feedback) != 1 || found.Feedback[0].Recommendation != interview.RecommendYes {
		t.Fatalf("unexpected interview: %+v", found)
	}
	if found.CreatedBy != "" {
		t.Fatalf("expected empty creator, got %q", found.CreatedBy)
	}
}

func TestInterviewRepository_UpdateStatus_NotFound(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	repo := NewInterviewRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE interviews")).
		WithArgs(interview.StatusCancelled, now, "company-2", "iv-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateStatus(context.Background(), "company-2", "iv-1", interview.StatusCancelled, now); !errors.Is(err, interview.ErrInterviewNotFound) {
		t.Fatalf("expected ErrInterviewNotFound, got %v", err)
	}
}

func TestTranslateInterviewPgError(t *testing.T) {
	t.Parallel()

	dup := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "interview_feedback_interview_id_interviewer_id_key"}
	if !errors.Is(translateInterviewPgError(dup), interview.ErrFeedbackAlreadySubmitted) {
		t.Fatalf("expected duplicate feedback mapping")
	}
	other := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "interview_panelists_pkey"}
	if translateInterviewPgError(other) != error(other) {
		t.Fatalf("unexpected translation for panel duplicate")
	}
}
