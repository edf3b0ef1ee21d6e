package candidate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"
)

const (
	companyA = "aaaaaaaa-0000-0000-0000-000000000001"
	companyB = "bbbbbbbb-0000-0000-0000-000000000002"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type fakeCandidateRepo struct {
	candidates map[string]*Candidate
	order      []string
	activities []*Activity
	sequence   int
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{candidates: make(map[string]*Candidate)}
}

func (r *fakeCandidateRepo) nextID() string {
	r.sequence++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", r.sequence)
}

func (r *fakeCandidateRepo) Create(_ context.Context, c *Candidate) (*Candidate, error) {
	clone := *c
	clone.ID = r.nextID()
	r.candidates[clone.ID] = &clone
	r.order = append(r.order, clone.ID)
	out := clone
	return &out, nil
}

func (r *fakeCandidateRepo) Update(_ context.Context, c *Candidate) (*Candidate, error) {
	if _, ok := r.candidates[c.ID]; !ok {
		return nil, ErrCandidateNotFound
	}
	clone := *c
	r.candidates[c.ID] = &clone
	out := clone
	return &out, nil
}

func (r *fakeCandidateRepo) FindByID(_ context.Context, companyID, id string) (*Candidate, error) {
	c, ok := r.candidates[id]
	if !ok || c.CompanyID != companyID {
		return nil, ErrCandidateNotFound
	}
	out := *c
	return &out, nil
}

func (r *fakeCandidateRepo) FindByEmail(_ context.Context, companyID, email string) (*Candidate, error) {
	for _, c := range r.candidates {
		if c.CompanyID == companyID && c.Email == email {
			out := *c
			return &out, nil
		}
	}
	return nil, ErrCandidateNotFound
}

func (r *fakeCandidateRepo) List(_ context.Context, filter ListCandidatesFilter) ([]*Candidate, string, error) {
	var out []*Candidate
	for _, id := range r.order {
		c := r.candidates[id]
		if c.CompanyID != filter.CompanyID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	return out, "", nil
}

func (r *fakeCandidateRepo) CreateActivity(_ context.Context, a *Activity) (*Activity, error) {
	clone := *a
	clone.ID = r.nextID()
	r.activities = append(r.activities, &clone)
	out := clone
	return &out, nil
}

func (r *fakeCandidateRepo) ListActivities(_ context.Context, filter ListActivitiesFilter) ([]*Activity, string, error) {
	var out []*Activity
	for i := len(r.activities) - 1; i >= 0; i-- {
		a := r.activities[i]
		if a.CompanyID == filter.CompanyID && a.CandidateID == filter.CandidateID {
			clone := *a
			out = append(out, &clone)
		}
	}
	return out, "", nil
}

func newTestService(repo *fakeCandidateRepo) *Service {
	return NewService(repo, repo, &stubClock{now: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}, nil)
}

func TestService_CreateCandidate_Success(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeCandidateRepo())
	years := 5
	created, err := svc.CreateCandidate(context.Background(), CreateCandidateInput{
		CompanyID:         companyA,
		Name:              " Ada Lovelace ",
		Email:             "ADA@example.com",
		Skills:            []string{"Go", " go ", "SQL", ""},
		ResumeURL:         "https://cv.example.com/ada.pdf",
		YearsOfExperience: &years,
	})
	if err != nil {
		t.Fatalf("CreateCandidate returned error: %v", err)
	}
	if created.Name != "Ada Lovelace" || created.Email != "ada@example.com" {
		t.Fatalf("unexpected candidate: %+v", created)
	}
	if len(created.Skills) != 2 || created.Skills[0] != "Go" || created.Skills[1] != "SQL" {
		t.Fatalf("unexpected skills: %v", created.Skills)
	}
}

func TestService_CreateCandidate_CollectsFieldErrors(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeCandidateRepo())
	years := -1
	_, err := svc.CreateCandidate(context.Background(), CreateCandidateInput{
		CompanyID:         companyA,
		Email:             "not-an-email",
		ResumeURL:         "ftp://files",
		YearsOfExperience: &years,
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := apperr.FieldsOf(err)
	if len(fields) != 4 {
		t.Fatalf("expected 4 field errors, got %+v", fields)
	}
}

func TestService_CreateCandidate_DuplicateEmailPerCompany(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeCandidateRepo())
	ctx := context.Background()
	in := CreateCandidateInput{CompanyID: companyA, Name: "Ada", Email: "ada@example.com"}
	if _, err := svc.CreateCandidate(ctx, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateCandidate(ctx, in); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}
	in.CompanyID = companyB
	if _, err := svc.CreateCandidate(ctx, in); err != nil {
		t.Fatalf("same email in another company should be allowed: %v", err)
	}
}

func TestService_UpdateCandidate(t *testing.T) {
	t.Parallel()

	svc := newTestService(newFakeCandidateRepo())
	ctx := context.Background()
	first, err := svc.CreateCandidate(ctx, CreateCandidateInput{CompanyID: companyA, Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateCandidate error: %v", err)
	}
	if _, err := svc.CreateCandidate(ctx, CreateCandidateInput{CompanyID: companyA, Name: "Bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("CreateCandidate error: %v", err)
	}

	taken := "bob@example.com"
	if _, err := svc.UpdateCandidate(ctx, UpdateCandidateInput{CompanyID: companyA, ID: first.ID, Email: &taken}); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("expected ErrEmailAlreadyExists, got %v", err)
	}

	phone := " +81-90-0000-0000 "
	updated, err := svc.UpdateCandidate(ctx, UpdateCandidateInput{CompanyID: companyA, ID: first.ID, Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateCandidate error: %v", err)
	}
	if updated.Phone != "+81-90-0000-0000" || updated.Email != "ada@example.com" {
		t.Fatalf("unexpected candidate: %+v", updated)
	}

	if _, err := svc.UpdateCandidate(ctx, UpdateCandidateInput{CompanyID: companyB, ID: first.ID, Phone: &phone}); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound for other tenant, got %v", err)
	}
}

func TestService_ListActivities_NewestFirst(t *testing.T) {
	t.Parallel()

	repo := newFakeCandidateRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	c, err := svc.CreateCandidate(ctx, CreateCandidateInput{CompanyID: companyA, Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateCandidate error: %v", err)
	}
	for _, desc := range []string{"applied", "moved"} {
		if _, err := repo.CreateActivity(ctx, &Activity{CompanyID: companyA, CandidateID: c.ID, Type: ActivityStageChange, Description: desc}); err != nil {
			t.Fatalf("CreateActivity error: %v", err)
		}
	}

	res, err := svc.ListActivities(ctx, ListActivitiesInput{CompanyID: companyA, CandidateID: c.ID})
	if err != nil {
		t.Fatalf("ListActivities error: %v", err)
	}
	if len(res.Activities) != 2 || res.Activities[0].Description != "moved" {
		t.Fatalf("unexpected activities: %+v", res.Activities)
	}

	if _, err := svc.ListActivities(ctx, ListActivitiesInput{CompanyID: companyB, CandidateID: c.ID}); !errors.Is(err, ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
}
