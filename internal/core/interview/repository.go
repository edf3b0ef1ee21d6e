package interview

import (
	"context"
	"time"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/notification"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
)

// Repository は面接と評価の永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, iv *Interview) (*Interview, error)
	FindByID(ctx context.Context, companyID, id string) (*Interview, error)
	UpdateStatus(ctx context.Context, companyID, id string, status Status, at time.Time) error
	ListByJobCandidate(ctx context.Context, companyID, jobCandidateID string) ([]*Interview, error)
	CreateFeedback(ctx context.Context, fb *Feedback) (*Feedback, error)
}

// ApplicationReader は面接対象の応募を参照します。
type ApplicationReader interface {
	FindByID(ctx context.Context, companyID, id string) (*pipeline.JobCandidate, error)
}

// MemberChecker は面接官が会社の有効な所属者かを判定します。
type MemberChecker interface {
	IsActiveMember(ctx context.Context, companyID, userID string) (bool, error)
}

// ActivityWriter は応募者タイムラインへ記録します。
type ActivityWriter interface {
	CreateActivity(ctx context.Context, a *candidate.Activity) (*candidate.Activity, error)
}

// Notifier は面接に関する通知を配信します。
type Notifier interface {
	Dispatch(ctx context.Context, in notification.DispatchInput) (int, error)
}
