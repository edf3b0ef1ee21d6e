package candidate

import "context"

// Repository は応募者の永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, c *Candidate) (*Candidate, error)
	Update(ctx context.Context, c *Candidate) (*Candidate, error)
	FindByID(ctx context.Context, companyID, id string) (*Candidate, error)
	FindByEmail(ctx context.Context, companyID, email string) (*Candidate, error)
	List(ctx context.Context, filter ListCandidatesFilter) ([]*Candidate, string, error)
}

// ActivityRepository は応募者タイムラインの永続化を行うインターフェースです。
type ActivityRepository interface {
	CreateActivity(ctx context.Context, a *Activity) (*Activity, error)
	ListActivities(ctx context.Context, filter ListActivitiesFilter) ([]*Activity, string, error)
}

// ListCandidatesFilter は一覧取得時の検索条件を表します。Search は名前とメールの部分一致です。
type ListCandidatesFilter struct {
	CompanyID string
	Search    string
	Limit     int
	Offset    int
}

// ListActivitiesFilter はタイムライン取得時の条件を表します。
type ListActivitiesFilter struct {
	CompanyID   string
	CandidateID string
	Limit       int
	Offset      int
}
