package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/ids"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/sla"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/usecase"
)

// Service は通知の配信と既読管理を行います。
// pipeline.PostCommitHook と sla.BreachHook を実装し、イベントを通知に変換します。
type Service struct {
	repo       Repository
	recipients RecipientSource
	clock      usecase.Clock
	tx         usecase.TransactionManager
}

var (
	_ pipeline.PostCommitHook = (*Service)(nil)
	_ sla.BreachHook          = (*Service)(nil)
)

// UseCase は通知ユースケースの公開インターフェースです。
type UseCase interface {
	Dispatch(ctx context.Context, in DispatchInput) (int, error)
	List(ctx context.Context, in ListInput) (*ListResult, error)
	MarkAsRead(ctx context.Context, companyID, userID, id string) error
	MarkAllAsRead(ctx context.Context, companyID, userID string) (int64, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, recipients RecipientSource, clock usecase.Clock, tx usecase.TransactionManager) *Service {
	clock, tx = usecase.Defaults(clock, tx)
	return &Service{repo: repo, recipients: recipients, clock: clock, tx: tx}
}

// DispatchInput は配信する通知の内容です。ActorID は宛先から除外されます。
type DispatchInput struct {
	CompanyID string
	ActorID   string
	Type      Type
	Title     string
	Message   string
	Payload   map[string]any
}

// ListInput は通知一覧取得時の入力です。
type ListInput struct {
	CompanyID  string
	UserID     string
	UnreadOnly bool
	PageSize   int
	PageToken  string
}

// ListResult は通知一覧の取得結果です。UnreadCount は絞り込みに関係なく未読の総数です。
type ListResult struct {
	Notifications []*Notification
	UnreadCount   int
	NextPageToken string
}

// Dispatch は会社の有効なユーザー全員(操作者を除く)に通知を 1 件ずつ作成し、作成件数を返します。
func (s *Service) Dispatch(ctx context.Context, in DispatchInput) (int, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return 0, err
	}
	if in.Type == "" {
		return 0, ErrInvalidType
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return 0, ErrInvalidTitle
	}
	actorID := strings.ToLower(strings.TrimSpace(in.ActorID))

	created := 0
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		userIDs, err := s.recipients.ActiveUserIDs(txCtx, companyID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		batch := make([]*Notification, 0, len(userIDs))
		for _, userID := range userIDs {
			if userID == actorID {
				continue
			}
			batch = append(batch, &Notification{
				CompanyID: companyID,
				UserID:    userID,
				Type:      in.Type,
				Title:     title,
				Message:   in.Message,
				Payload:   in.Payload,
				CreatedAt: now,
			})
		}
		if len(batch) == 0 {
			return nil
		}

		n, err := s.repo.CreateMany(txCtx, batch)
		if err != nil {
			return err
		}
		created = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// Name はフック名を返します。
func (s *Service) Name() string {
	return "notification"
}

// AfterStageChange は応募登録やステージ変更を通知に変換して配信します。
func (s *Service) AfterStageChange(ctx context.Context, event pipeline.StageChangedEvent) error {
	in := DispatchInput{
		CompanyID: event.CompanyID,
		ActorID:   event.ActorID,
		Payload: map[string]any{
			"jobCandidateId": event.JobCandidateID,
			"candidateId":    event.CandidateID,
			"jobId":          event.JobID,
			"toStageId":      event.ToStageID,
			"toStageName":    event.ToStageName,
		},
	}

	switch event.Kind {
	case pipeline.EventApplied:
		in.Type = TypeApplicationCreated
		in.Title = "New application"
		in.Message = fmt.Sprintf("%s applied to %s", event.CandidateName, event.JobTitle)
	default:
		in.Type = TypeStageChange
		in.Title = "Candidate moved"
		in.Message = fmt.Sprintf("%s moved from %s to %s for %s", event.CandidateName, event.FromStageName, event.ToStageName, event.JobTitle)
		in.Payload["fromStageId"] = event.FromStageID
		in.Payload["fromStageName"] = event.FromStageName
	}
	if event.Comment != "" {
		in.Payload["comment"] = event.Comment
	}

	_, err := s.Dispatch(ctx, in)
	return err
}

// OnBreaches は新たに検出された SLA 超過を会社の全ユーザーへ通知します。
func (s *Service) OnBreaches(ctx context.Context, companyID string, breaches []sla.Evaluation) error {
	for _, b := range breaches {
		if _, err := s.Dispatch(ctx, DispatchInput{
			CompanyID: companyID,
			Type:      TypeSLABreach,
			Title:     "SLA breached",
			Message: fmt.Sprintf("%s has been in %s for %d days (threshold %d) for %s",
				b.CandidateName, b.StageName, b.DaysInStage, b.ThresholdDays, b.JobTitle),
			Payload: map[string]any{
				"jobCandidateId": b.JobCandidateID,
				"candidateId":    b.CandidateID,
				"jobId":          b.JobID,
				"stageName":      b.StageName,
				"daysInStage":    b.DaysInStage,
				"thresholdDays":  b.ThresholdDays,
				"daysOverdue":    b.DaysOverdue,
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

// List は要求者宛ての通知を新しい順に返します。
func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	userID, err := ids.Normalize("userId", in.UserID)
	if err != nil {
		return nil, err
	}
	limit, offset, err := paging.Normalize(in.PageSize, in.PageToken)
	if err != nil {
		return nil, err
	}

	result := &ListResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		items, next, err := s.repo.List(txCtx, ListFilter{
			CompanyID:  companyID,
			UserID:     userID,
			UnreadOnly: in.UnreadOnly,
			Limit:      limit,
			Offset:     offset,
		})
		if err != nil {
			return err
		}
		unread, err := s.repo.CountUnread(txCtx, companyID, userID)
		if err != nil {
			return err
		}
		result.Notifications = items
		result.NextPageToken = next
		result.UnreadCount = unread
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkAsRead は要求者宛ての通知を既読にします。既読済みでもエラーにはしません。
func (s *Service) MarkAsRead(ctx context.Context, companyID, userID, id string) error {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return err
	}
	uid, err := ids.Normalize("userId", userID)
	if err != nil {
		return err
	}
	nid, err := ids.Normalize("id", id)
	if err != nil {
		return err
	}

	return s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.MarkAsRead(txCtx, cid, uid, nid, s.clock.Now())
	})
}

// MarkAllAsRead は要求者宛ての未読通知をすべて既読にし、更新件数を返します。
func (s *Service) MarkAllAsRead(ctx context.Context, companyID, userID string) (int64, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return 0, err
	}
	uid, err := ids.Normalize("userId", userID)
	if err != nil {
		return 0, err
	}

	var updated int64
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.repo.MarkAllAsRead(txCtx, cid, uid, s.clock.Now())
		if err != nil {
			return err
		}
		updated = n
		return nil
	}); err != nil {
		return 0, err
	}
	return updated, nil
}
