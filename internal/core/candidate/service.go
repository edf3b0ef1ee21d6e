package candidate

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/ids"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/usecase"
)

// Service は応募者とタイムラインに関するユースケースをまとめます。
type Service struct {
	repo       Repository
	activities ActivityRepository
	clock      usecase.Clock
	tx         usecase.TransactionManager
}

// UseCase は応募者ユースケースの公開インターフェースです。
type UseCase interface {
	CreateCandidate(ctx context.Context, in CreateCandidateInput) (*Candidate, error)
	GetCandidate(ctx context.Context, companyID, id string) (*Candidate, error)
	ListCandidates(ctx context.Context, in ListCandidatesInput) (*ListCandidatesResult, error)
	UpdateCandidate(ctx context.Context, in UpdateCandidateInput) (*Candidate, error)
	ListActivities(ctx context.Context, in ListActivitiesInput) (*ListActivitiesResult, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, activities ActivityRepository, clock usecase.Clock, tx usecase.TransactionManager) *Service {
	clock, tx = usecase.Defaults(clock, tx)
	return &Service{repo: repo, activities: activities, clock: clock, tx: tx}
}

// CreateCandidateInput は応募者登録時の入力です。
type CreateCandidateInput struct {
	CompanyID         string
	Name              string
	Email             string
	Phone             string
	Skills            []string
	ResumeURL         string
	YearsOfExperience *int
	Source            string
}

// UpdateCandidateInput は応募者更新時の入力です。nil の項目は変更しません。
type UpdateCandidateInput struct {
	CompanyID         string
	ID                string
	Name              *string
	Email             *string
	Phone             *string
	Skills            *[]string
	ResumeURL         *string
	YearsOfExperience *int
	Source            *string
}

// ListCandidatesInput は一覧取得時の入力です。
type ListCandidatesInput struct {
	CompanyID string
	Search    string
	PageSize  int
	PageToken string
}

// ListCandidatesResult は一覧取得結果を表します。
type ListCandidatesResult struct {
	Candidates    []*Candidate
	NextPageToken string
}

// ListActivitiesInput はタイムライン取得時の入力です。
type ListActivitiesInput struct {
	CompanyID   string
	CandidateID string
	PageSize    int
	PageToken   string
}

// ListActivitiesResult はタイムライン取得結果を表します。新しい順に並びます。
type ListActivitiesResult struct {
	Activities    []*Activity
	NextPageToken string
}

// CreateCandidate は応募者を登録します。
func (s *Service) CreateCandidate(ctx context.Context, in CreateCandidateInput) (*Candidate, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}

	var errs apperr.Collector
	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs.AddErr(ErrInvalidName)
	}
	email, err := normalizeEmail(in.Email)
	errs.AddErr(err)
	resumeURL, err := normalizeResumeURL(in.ResumeURL)
	errs.AddErr(err)
	errs.AddErr(validateExperience(in.YearsOfExperience))
	if err := errs.Err(); err != nil {
		return nil, err
	}

	var created *Candidate
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByEmail(txCtx, companyID, email)
		if err != nil && !errors.Is(err, ErrCandidateNotFound) {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Candidate{
			CompanyID:         companyID,
			Name:              name,
			Email:             email,
			Phone:             strings.TrimSpace(in.Phone),
			Skills:            normalizeSkills(in.Skills),
			ResumeURL:         resumeURL,
			YearsOfExperience: in.YearsOfExperience,
			Source:            strings.TrimSpace(in.Source),
			CreatedAt:         now,
			UpdatedAt:         now,
		})
		if err != nil {
			return err
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// GetCandidate は応募者を取得します。
func (s *Service) GetCandidate(ctx context.Context, companyID, id string) (*Candidate, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return nil, err
	}
	candidateID, err := ids.Normalize("id", id)
	if err != nil {
		return nil, err
	}

	var found *Candidate
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, cid, candidateID)
		if err != nil {
			return err
		}
		found = result
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// ListCandidates は応募者の一覧を取得します。
func (s *Service) ListCandidates(ctx context.Context, in ListCandidatesInput) (*ListCandidatesResult, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	limit, offset, err := paging.Normalize(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	result := &ListCandidatesResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		candidates, next, err := s.repo.List(txCtx, ListCandidatesFilter{
			CompanyID: companyID,
			Search:    strings.TrimSpace(in.Search),
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return err
		}
		result.Candidates = candidates
		result.NextPageToken = next
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateCandidate は応募者情報を更新します。
func (s *Service) UpdateCandidate(ctx context.Context, in UpdateCandidateInput) (*Candidate, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	id, err := ids.Normalize("id", in.ID)
	if err != nil {
		return nil, err
	}

	var updated *Candidate
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, companyID, id)
		if err != nil {
			return err
		}

		var errs apperr.Collector
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				errs.AddErr(ErrInvalidName)
			}
			existing.Name = name
		}
		emailChanged := false
		if in.Email != nil {
			email, err := normalizeEmail(*in.Email)
			errs.AddErr(err)
			emailChanged = email != existing.Email
			existing.Email = email
		}
		if in.ResumeURL != nil {
			resumeURL, err := normalizeResumeURL(*in.ResumeURL)
			errs.AddErr(err)
			existing.ResumeURL = resumeURL
		}
		if in.YearsOfExperience != nil {
			errs.AddErr(validateExperience(in.YearsOfExperience))
			existing.YearsOfExperience = in.YearsOfExperience
		}
		if err := errs.Err(); err != nil {
			return err
		}

		if emailChanged {
			dup, err := s.repo.FindByEmail(txCtx, companyID, existing.Email)
			if err != nil && !errors.Is(err, ErrCandidateNotFound) {
				return err
			}
			if dup != nil && dup.ID != existing.ID {
				return ErrEmailAlreadyExists
			}
		}

		if in.Phone != nil {
			existing.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Skills != nil {
			existing.Skills = normalizeSkills(*in.Skills)
		}
		if in.Source != nil {
			existing.Source = strings.TrimSpace(*in.Source)
		}
		existing.UpdatedAt = s.clock.Now()

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// ListActivities は応募者のタイムラインを新しい順に取得します。
func (s *Service) ListActivities(ctx context.Context, in ListActivitiesInput) (*ListActivitiesResult, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	candidateID, err := ids.Normalize("candidateId", in.CandidateID)
	if err != nil {
		return nil, err
	}
	limit, offset, err := paging.Normalize(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	result := &ListActivitiesResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, companyID, candidateID); err != nil {
			return err
		}
		activities, next, err := s.activities.ListActivities(txCtx, ListActivitiesFilter{
			CompanyID:   companyID,
			CandidateID: candidateID,
			Limit:       limit,
			Offset:      offset,
		})
		if err != nil {
			return err
		}
		result.Activities = activities
		result.NextPageToken = next
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func normalizeResumeURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.Invalid("resumeUrl", "must be an absolute http(s) URL")
	}
	return u.String(), nil
}

func validateExperience(years *int) error {
	if years != nil && (*years < 0 || *years > 80) {
		return apperr.Invalid("yearsOfExperience", "must be between 0 and 80")
	}
	return nil
}

func normalizeSkills(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		skill := strings.TrimSpace(s)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}
	return out
}
