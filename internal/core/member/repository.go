package member

import "context"

// Repository は所属永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, member *Member) (*Member, error)
	Update(ctx context.Context, member *Member) (*Member, error)
	Delete(ctx context.Context, companyID, id string) error
	FindByID(ctx context.Context, companyID, id string) (*Member, error)
	FindByCompanyAndUser(ctx context.Context, companyID, userID string) (*Member, error)
	List(ctx context.Context, filter ListMembersFilter) ([]*Member, string, error)
	// ListActiveUserIDs は会社に所属する有効なユーザー(所属・ユーザーとも active)の ID を返します。
	ListActiveUserIDs(ctx context.Context, companyID string) ([]string, error)
}

// ListMembersFilter は一覧取得用フィルタです。
type ListMembersFilter struct {
	CompanyID string
	Status    *Status
	Role      *Role
	Limit     int
	Offset    int
}
