package company

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/ids"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/usecase"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Service は会社(テナント)に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock usecase.Clock
	tx    usecase.TransactionManager
}

// UseCase は会社ユースケースの公開インターフェースです。
type UseCase interface {
	CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error)
	GetCompany(ctx context.Context, id string) (*Company, error)
	ListCompanies(ctx context.Context, in ListCompaniesInput) (*ListCompaniesResult, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, clock usecase.Clock, tx usecase.TransactionManager) *Service {
	clock, tx = usecase.Defaults(clock, tx)
	return &Service{repo: repo, clock: clock, tx: tx}
}

// CreateCompanyInput は会社作成時の入力です。
type CreateCompanyInput struct {
	Name string
	Slug string
}

// ListCompaniesInput は一覧取得時の入力です。
type ListCompaniesInput struct {
	PageSize  int
	PageToken string
	Status    *Status
}

// ListCompaniesResult は一覧取得結果を表します。
type ListCompaniesResult struct {
	Companies     []*Company
	NextPageToken string
}

// CreateCompany は新しい会社を作成します。
func (s *Service) CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	var created *Company
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindBySlug(txCtx, slug)
		if err != nil && !errors.Is(err, ErrCompanyNotFound) {
			return err
		}
		if existing != nil {
			return ErrSlugAlreadyExists
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Company{
			Name:      name,
			Slug:      slug,
			Status:    StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
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

// GetCompany は ID で会社を取得します。
func (s *Service) GetCompany(ctx context.Context, id string) (*Company, error) {
	companyID, err := ids.Normalize("id", id)
	if err != nil {
		return nil, err
	}

	var found *Company
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, companyID)
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

// ListCompanies は会社の一覧を取得します。
func (s *Service) ListCompanies(ctx context.Context, in ListCompaniesInput) (*ListCompaniesResult, error) {
	limit, offset, err := paging.Normalize(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && *in.Status != StatusActive && *in.Status != StatusInactive {
		return nil, ErrInvalidStatus
	}

	result := &ListCompaniesResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		companies, next, err := s.repo.List(txCtx, ListCompaniesFilter{Limit: limit, Offset: offset, Status: in.Status})
		if err != nil {
			return err
		}
		result.Companies = companies
		result.NextPageToken = next
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// ListActiveCompanyIDs は稼働中の全会社 ID を返します。SLA の定期評価で利用します。
func (s *Service) ListActiveCompanyIDs(ctx context.Context) ([]string, error) {
	active := StatusActive
	var (
		out   []string
		token string
	)
	for {
		res, err := s.ListCompanies(ctx, ListCompaniesInput{PageSize: paging.MaxPageSize, PageToken: token, Status: &active})
		if err != nil {
			return nil, err
		}
		for _, c := range res.Companies {
			out = append(out, c.ID)
		}
		if res.NextPageToken == "" {
			return out, nil
		}
		token = res.NextPageToken
	}
}
