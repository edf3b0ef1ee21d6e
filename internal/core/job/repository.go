package job

import "context"

// Repository は求人とステージの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, job *Job) (*Job, error)
	Update(ctx context.Context, job *Job) (*Job, error)
	FindByID(ctx context.Context, companyID, id string) (*Job, error)
	List(ctx context.Context, filter ListJobsFilter) ([]*Job, string, error)
	CreateStage(ctx context.Context, stage *Stage) (*Stage, error)
	ListStages(ctx context.Context, jobID string) ([]*Stage, error)
	FindStageByID(ctx context.Context, companyID, stageID string) (*Stage, error)
}

// ListJobsFilter は一覧取得時の検索条件を表します。
type ListJobsFilter struct {
	CompanyID string
	Status    *Status
	Limit     int
	Offset    int
}

// MemberChecker は担当者が会社の有効な所属者かを判定します。
type MemberChecker interface {
	IsActiveMember(ctx context.Context, companyID, userID string) (bool, error)
}
