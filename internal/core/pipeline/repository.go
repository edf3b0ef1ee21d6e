package pipeline

import (
	"context"
	"time"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
)

// ApplicationRepository は応募(JobCandidate)の永続化を行うインターフェースです。
type ApplicationRepository interface {
	Create(ctx context.Context, jc *JobCandidate) (*JobCandidate, error)
	FindByID(ctx context.Context, companyID, id string) (*JobCandidate, error)
	// FindByIDForUpdate は同じ応募への同時移動を直列化するため行ロックを取得します。
	FindByIDForUpdate(ctx context.Context, companyID, id string) (*JobCandidate, error)
	FindByJobAndCandidateForUpdate(ctx context.Context, companyID, jobID, candidateID string) (*JobCandidate, error)
	FindByJobAndCandidate(ctx context.Context, companyID, jobID, candidateID string) (*JobCandidate, error)
	UpdateCurrentStage(ctx context.Context, companyID, id, stageID string, at time.Time) error
	List(ctx context.Context, filter ListApplicationsFilter) ([]*JobCandidate, string, error)
}

// HistoryRepository はステージ履歴の永続化を行うインターフェースです。行の追記と退出時刻の設定のみを行います。
type HistoryRepository interface {
	CloseOpen(ctx context.Context, jobCandidateID string, exitedAt time.Time) (*StageHistory, error)
	Open(ctx context.Context, h *StageHistory) (*StageHistory, error)
	ListByJobCandidate(ctx context.Context, jobCandidateID string) ([]*StageHistory, error)
}

// ListApplicationsFilter は応募一覧の検索条件を表します。
type ListApplicationsFilter struct {
	CompanyID   string
	JobID       string
	CandidateID string
	StageID     *string
	Limit       int
	Offset      int
}

// JobReader は応募先求人とステージを参照します。
type JobReader interface {
	FindByID(ctx context.Context, companyID, id string) (*job.Job, error)
}

// CandidateReader は応募者を参照します。
type CandidateReader interface {
	FindByID(ctx context.Context, companyID, id string) (*candidate.Candidate, error)
}

// ActivityWriter は応募者タイムラインへ記録します。
type ActivityWriter interface {
	CreateActivity(ctx context.Context, a *candidate.Activity) (*candidate.Activity, error)
}

// MemberChecker は操作者が会社の有効な所属者かを判定します。
type MemberChecker interface {
	IsActiveMember(ctx context.Context, companyID, userID string) (bool, error)
}
