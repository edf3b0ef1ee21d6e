package member

import (
	"context"
	"errors"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/ids"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/usecase"
)

// Service は会社への所属に関するユースケースをまとめます。
type Service struct {
	repo  Repository
	clock usecase.Clock
	tx    usecase.TransactionManager
}

// UseCase は所属ユースケースの公開インターフェースです。
type UseCase interface {
	AddMember(ctx context.Context, in AddMemberInput) (*Member, error)
	UpdateMember(ctx context.Context, in UpdateMemberInput) (*Member, error)
	RemoveMember(ctx context.Context, companyID, id string) error
	ListMembers(ctx context.Context, in ListMembersInput) (*ListMembersResult, error)
	IsActiveMember(ctx context.Context, companyID, userID string) (bool, error)
	IsMember(ctx context.Context, companyID, userID string) (bool, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, clock usecase.Clock, tx usecase.TransactionManager) *Service {
	clock, tx = usecase.Defaults(clock, tx)
	return &Service{repo: repo, clock: clock, tx: tx}
}

// AddMemberInput は所属追加時の入力です。
type AddMemberInput struct {
	CompanyID string
	UserID    string
	Role      Role
}

// UpdateMemberInput は所属更新時の入力です。
type UpdateMemberInput struct {
	CompanyID string
	ID        string
	Role      *Role
	Status    *Status
}

// ListMembersInput は一覧取得時の入力です。
type ListMembersInput struct {
	CompanyID string
	PageSize  int
	PageToken string
	Status    *Status
	Role      *Role
}

// ListMembersResult は一覧取得結果を表します。
type ListMembersResult struct {
	Members       []*Member
	NextPageToken string
}

// AddMember はユーザーを会社に所属させます。
func (s *Service) AddMember(ctx context.Context, in AddMemberInput) (*Member, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	userID, err := ids.Normalize("userId", in.UserID)
	if err != nil {
		return nil, err
	}
	if !isValidRole(in.Role) {
		return nil, ErrInvalidRole
	}

	var created *Member
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByCompanyAndUser(txCtx, companyID, userID)
		if err != nil && !errors.Is(err, ErrMemberNotFound) {
			return err
		}
		if existing != nil {
			return ErrMemberAlreadyExists
		}

		now := s.clock.Now()
		result, err := s.repo.Create(txCtx, &Member{
			CompanyID: companyID,
			UserID:    userID,
			Role:      in.Role,
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

// UpdateMember は役割や状態を更新します。
func (s *Service) UpdateMember(ctx context.Context, in UpdateMemberInput) (*Member, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	id, err := ids.Normalize("id", in.ID)
	if err != nil {
		return nil, err
	}

	var updated *Member
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, companyID, id)
		if err != nil {
			return err
		}

		if in.Role != nil {
			if !isValidRole(*in.Role) {
				return ErrInvalidRole
			}
			existing.Role = *in.Role
		}

		if in.Status != nil {
			if *in.Status != StatusActive && *in.Status != StatusInactive {
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

// RemoveMember は所属を削除します。
func (s *Service) RemoveMember(ctx context.Context, companyID, id string) error {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return err
	}
	mid, err := ids.Normalize("id", id)
	if err != nil {
		return err
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, cid, mid)
	})
}

// ListMembers は所属の一覧を取得します。
func (s *Service) ListMembers(ctx context.Context, in ListMembersInput) (*ListMembersResult, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}

	limit, offset, err := paging.Normalize(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && *in.Status != StatusActive && *in.Status != StatusInactive {
		return nil, ErrInvalidStatus
	}
	if in.Role != nil && !isValidRole(*in.Role) {
		return nil, ErrInvalidRole
	}

	result := &ListMembersResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		members, next, err := s.repo.List(txCtx, ListMembersFilter{
			CompanyID: companyID,
			Status:    in.Status,
			Role:      in.Role,
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			return err
		}
		result.Members = members
		result.NextPageToken = next
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// IsActiveMember はユーザーが会社の有効な所属者かを返します。
// ListActiveUserIDs と同じく、所属とユーザー自身の双方が有効であることを求めます。
func (s *Service) IsActiveMember(ctx context.Context, companyID, userID string) (bool, error) {
	m, err := s.repo.FindByCompanyAndUser(ctx, companyID, userID)
	if errors.Is(err, ErrMemberNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if m.User != nil && m.User.Status != userStatusActive {
		return false, nil
	}
	return m.Status == StatusActive, nil
}

// IsMember は状態を問わずユーザーが会社に所属しているかを返します。
func (s *Service) IsMember(ctx context.Context, companyID, userID string) (bool, error) {
	companyID, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return false, err
	}
	userID, err = ids.Normalize("userId", userID)
	if err != nil {
		return false, err
	}
	_, err = s.repo.FindByCompanyAndUser(ctx, companyID, userID)
	if errors.Is(err, ErrMemberNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ActiveUserIDs は通知宛先の候補となる有効なユーザー ID を返します。
func (s *Service) ActiveUserIDs(ctx context.Context, companyID string) ([]string, error) {
	return s.repo.ListActiveUserIDs(ctx, companyID)
}

func isValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleRecruiter, RoleHiringManager, RoleInterviewer:
		return true
	default:
		return false
	}
}
