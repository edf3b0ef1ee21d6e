package job

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/ids"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/usecase"
)

const maxStageNameLength = 100

// Service は求人とパイプラインステージに関するユースケースをまとめます。
type Service struct {
	repo    Repository
	members MemberChecker
	clock   usecase.Clock
	tx      usecase.TransactionManager
}

// UseCase は求人ユースケースの公開インターフェースです。
type UseCase interface {
	CreateJob(ctx context.Context, in CreateJobInput) (*Job, error)
	GetJob(ctx context.Context, companyID, id string) (*Job, error)
	ListJobs(ctx context.Context, in ListJobsInput) (*ListJobsResult, error)
	UpdateJob(ctx context.Context, in UpdateJobInput) (*Job, error)
	AddStage(ctx context.Context, in AddStageInput) (*Stage, error)
}

// NewService は Service を生成します。members が nil の場合は担当者の所属確認を行いません。
func NewService(repo Repository, members MemberChecker, clock usecase.Clock, tx usecase.TransactionManager) *Service {
	clock, tx = usecase.Defaults(clock, tx)
	return &Service{repo: repo, members: members, clock: clock, tx: tx}
}

// StageInput は求人作成時に指定するステージです。
type StageInput struct {
	Name      string
	Mandatory bool
}

// CreateJobInput は求人作成時の入力です。
type CreateJobInput struct {
	CompanyID   string
	Title       string
	Department  string
	RecruiterID *string
	Status      *Status
	Stages      []StageInput
}

// UpdateJobInput は求人更新時の入力です。
type UpdateJobInput struct {
	CompanyID   string
	ID          string
	Title       *string
	Department  *string
	RecruiterID *string
	Status      *Status
}

// ListJobsInput は一覧取得時の入力です。
type ListJobsInput struct {
	CompanyID string
	Status    *Status
	PageSize  int
	PageToken string
}

// ListJobsResult は一覧取得結果を表します。
type ListJobsResult struct {
	Jobs          []*Job
	NextPageToken string
}

// AddStageInput はステージ追加時の入力です。
type AddStageInput struct {
	CompanyID string
	JobID     string
	Name      string
	Mandatory bool
}

// CreateJob は求人を作成します。ステージ未指定の場合は既定のステージを作成します。
func (s *Service) CreateJob(ctx context.Context, in CreateJobInput) (*Job, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrInvalidTitle
	}

	status := StatusOpen
	if in.Status != nil {
		if !isValidStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		status = *in.Status
	}

	recruiterID, err := s.normalizeRecruiter(ctx, companyID, in.RecruiterID)
	if err != nil {
		return nil, err
	}

	stageInputs := in.Stages
	if len(stageInputs) == 0 {
		stageInputs = make([]StageInput, 0, len(DefaultStageNames))
		for i, name := range DefaultStageNames {
			stageInputs = append(stageInputs, StageInput{Name: name, Mandatory: i == 0})
		}
	}

	now := s.clock.Now()
	job := &Job{
		CompanyID:   companyID,
		Title:       title,
		Department:  strings.TrimSpace(in.Department),
		RecruiterID: recruiterID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, st := range stageInputs {
		name, err := normalizeStageName(st.Name)
		if err != nil {
			return nil, err
		}
		if job.hasStageNamed(name) {
			return nil, ErrDuplicateStageName
		}
		job.Stages = append(job.Stages, &Stage{Name: name, Position: i, Mandatory: st.Mandatory, CreatedAt: now})
	}

	var created *Job
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, job)
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

// GetJob は求人をステージ付きで取得します。
func (s *Service) GetJob(ctx context.Context, companyID, id string) (*Job, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return nil, err
	}
	jobID, err := ids.Normalize("id", id)
	if err != nil {
		return nil, err
	}

	var found *Job
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, cid, jobID)
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

// ListJobs は会社の求人一覧を取得します。
func (s *Service) ListJobs(ctx context.Context, in ListJobsInput) (*ListJobsResult, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}

	limit, offset, err := paging.Normalize(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && !isValidStatus(*in.Status) {
		return nil, ErrInvalidStatus
	}

	result := &ListJobsResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		jobs, next, err := s.repo.List(txCtx, ListJobsFilter{
			CompanyID: companyID,
			Status:    in.Status,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return err
		}
		result.Jobs = jobs
		result.NextPageToken = next
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateJob は求人の属性を更新します。ステージは AddStage で追加します。
func (s *Service) UpdateJob(ctx context.Context, in UpdateJobInput) (*Job, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	id, err := ids.Normalize("id", in.ID)
	if err != nil {
		return nil, err
	}

	var updated *Job
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, companyID, id)
		if err != nil {
			return err
		}

		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if title == "" {
				return ErrInvalidTitle
			}
			existing.Title = title
		}

		if in.Department != nil {
			existing.Department = strings.TrimSpace(*in.Department)
		}

		if in.RecruiterID != nil {
			recruiterID, err := s.normalizeRecruiter(txCtx, companyID, in.RecruiterID)
			if err != nil {
				return err
			}
			existing.RecruiterID = recruiterID
		}

		if in.Status != nil {
			if !isValidStatus(*in.Status) {
				return ErrInvalidStatus
			}
			existing.Status = *in.Status
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

// AddStage は求人の末尾にステージを追加します。
func (s *Service) AddStage(ctx context.Context, in AddStageInput) (*Stage, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	jobID, err := ids.Normalize("jobId", in.JobID)
	if err != nil {
		return nil, err
	}
	name, err := normalizeStageName(in.Name)
	if err != nil {
		return nil, err
	}

	var created *Stage
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, companyID, jobID)
		if err != nil {
			return err
		}
		if existing.hasStageNamed(name) {
			return ErrDuplicateStageName
		}

		position := 0
		for _, st := range existing.Stages {
			if st.Position >= position {
				position = st.Position + 1
			}
		}

		result, err := s.repo.CreateStage(txCtx, &Stage{
			JobID:     existing.ID,
			Name:      name,
			Position:  position,
			Mandatory: in.Mandatory,
			CreatedAt: s.clock.Now(),
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

func (s *Service) normalizeRecruiter(ctx context.Context, companyID string, raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := ids.Normalize("recruiterId", *raw)
	if err != nil {
		return nil, err
	}
	if s.members != nil {
		ok, err := s.members.IsActiveMember(ctx, companyID, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrRecruiterNotMember
		}
	}
	return &id, nil
}

func normalizeStageName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrInvalidStageName
	}
	if utf8.RuneCountInString(name) > maxStageNameLength {
		return "", ErrStageNameTooLong
	}
	return name, nil
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusDraft, StatusOpen, StatusClosed:
		return true
	default:
		return false
	}
}
