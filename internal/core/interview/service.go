package interview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/ids"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/notification"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/pipeline"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/usecase"
)

const (
	minDurationMinutes = 15
	maxDurationMinutes = 480
	maxNotesLength     = 5000
)

// Service は面接の予定、状態管理、評価を扱います。
type Service struct {
	repo         Repository
	applications ApplicationReader
	members      MemberChecker
	activities   ActivityWriter
	notifier     Notifier
	logger       *slog.Logger
	clock        usecase.Clock
	tx           usecase.TransactionManager
}

// UseCase は面接ユースケースの公開インターフェースです。
type UseCase interface {
	Schedule(ctx context.Context, in ScheduleInput) (*Interview, error)
	UpdateStatus(ctx context.Context, in UpdateStatusInput) (*Interview, error)
	SubmitFeedback(ctx context.Context, in SubmitFeedbackInput) (*Feedback, error)
	Get(ctx context.Context, companyID, id string) (*Interview, error)
	ListByApplication(ctx context.Context, companyID, jobCandidateID string) ([]*Interview, error)
}

// Deps は Service の依存関係です。Notifier, Logger, Clock, Tx は省略できます。
type Deps struct {
	Repo         Repository
	Applications ApplicationReader
	Members      MemberChecker
	Activities   ActivityWriter
	Notifier     Notifier
	Logger       *slog.Logger
	Clock        usecase.Clock
	Tx           usecase.TransactionManager
}

// NewService は Service を生成します。
func NewService(d Deps) *Service {
	clock, tx := usecase.Defaults(d.Clock, d.Tx)
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:         d.Repo,
		applications: d.Applications,
		members:      d.Members,
		activities:   d.Activities,
		notifier:     d.Notifier,
		logger:       logger,
		clock:        clock,
		tx:           tx,
	}
}

// ScheduleInput は面接予定登録時の入力です。
type ScheduleInput struct {
	CompanyID       string
	JobCandidateID  string
	ScheduledAt     time.Time
	DurationMinutes int
	Mode            Mode
	Location        string
	Panel           []string
	ActorID         string
}

// UpdateStatusInput は状態更新時の入力です。
type UpdateStatusInput struct {
	CompanyID string
	ID        string
	Status    Status
	ActorID   string
}

// SubmitFeedbackInput は評価登録時の入力です。
type SubmitFeedbackInput struct {
	CompanyID      string
	InterviewID    string
	InterviewerID  string
	Rating         int
	Recommendation Recommendation
	Notes          string
}

// Schedule は応募に対する面接を予定します。
func (s *Service) Schedule(ctx context.Context, in ScheduleInput) (*Interview, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	jobCandidateID, err := ids.Normalize("jobCandidateId", in.JobCandidateID)
	if err != nil {
		return nil, err
	}
	actorID, err := ids.Normalize("actorId", in.ActorID)
	if err != nil {
		return nil, err
	}
	if !isValidMode(in.Mode) {
		return nil, ErrInvalidMode
	}
	if in.DurationMinutes < minDurationMinutes || in.DurationMinutes > maxDurationMinutes {
		return nil, ErrInvalidDuration
	}
	now := s.clock.Now()
	if !in.ScheduledAt.After(now) {
		return nil, ErrScheduledInPast
	}
	if len(in.Panel) == 0 {
		return nil, ErrEmptyPanel
	}
	panel, err := ids.NormalizeAll("panel", in.Panel)
	if err != nil {
		return nil, err
	}

	var (
		created *Interview
		jc      *pipeline.JobCandidate
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		found, err := s.applications.FindByID(txCtx, companyID, jobCandidateID)
		if err != nil {
			return err
		}
		jc = found

		for _, userID := range panel {
			ok, err := s.members.IsActiveMember(txCtx, companyID, userID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrPanelistNotMember
			}
		}

		result, err := s.repo.Create(txCtx, &Interview{
			CompanyID:       companyID,
			JobCandidateID:  jobCandidateID,
			ScheduledAt:     in.ScheduledAt.UTC(),
			DurationMinutes: in.DurationMinutes,
			Mode:            in.Mode,
			Location:        strings.TrimSpace(in.Location),
			Status:          StatusScheduled,
			Panel:           panel,
			CreatedBy:       actorID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return err
		}
		created = result

		return s.recordActivity(txCtx, jc, candidate.ActivityInterviewScheduled, actorID,
			fmt.Sprintf("Interview scheduled for %s (%s)", result.ScheduledAt.Format(time.RFC3339), result.Mode),
			map[string]any{"interviewId": result.ID}, now)
	}); err != nil {
		return nil, err
	}

	s.notify(ctx, notification.DispatchInput{
		CompanyID: companyID,
		ActorID:   actorID,
		Type:      notification.TypeInterviewScheduled,
		Title:     "Interview scheduled",
		Message:   fmt.Sprintf("Interview scheduled for %s at %s", jc.CandidateName, created.ScheduledAt.Format(time.RFC3339)),
		Payload:   map[string]any{"interviewId": created.ID, "jobCandidateId": jobCandidateID},
	})
	return created, nil
}

// UpdateStatus は面接の状態を遷移させます。終端状態からは遷移できません。
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (*Interview, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	id, err := ids.Normalize("id", in.ID)
	if err != nil {
		return nil, err
	}
	actorID, err := ids.Normalize("actorId", in.ActorID)
	if err != nil {
		return nil, err
	}
	if !isValidStatus(in.Status) {
		return nil, ErrInvalidStatus
	}

	var (
		updated *Interview
		jc      *pipeline.JobCandidate
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		iv, err := s.repo.FindByID(txCtx, companyID, id)
		if err != nil {
			return err
		}
		if !CanTransition(iv.Status, in.Status) {
			return ErrInvalidTransition
		}

		now := s.clock.Now()
		if err := s.repo.UpdateStatus(txCtx, companyID, id, in.Status, now); err != nil {
			return err
		}
		previous := iv.Status
		iv.Status = in.Status
		iv.UpdatedAt = now
		updated = iv

		if jc, err = s.applications.FindByID(txCtx, companyID, iv.JobCandidateID); err != nil {
			return err
		}
		return s.recordActivity(txCtx, jc, candidate.ActivityInterviewStatus, actorID,
			fmt.Sprintf("Interview status changed from %s to %s", previous, in.Status),
			map[string]any{"interviewId": iv.ID, "status": string(in.Status)}, now)
	}); err != nil {
		return nil, err
	}

	if in.Status == StatusCancelled {
		s.notify(ctx, notification.DispatchInput{
			CompanyID: companyID,
			ActorID:   actorID,
			Type:      notification.TypeInterviewUpdated,
			Title:     "Interview cancelled",
			Message:   fmt.Sprintf("Interview with %s was cancelled", jc.CandidateName),
			Payload:   map[string]any{"interviewId": updated.ID, "jobCandidateId": updated.JobCandidateID},
		})
	}
	return updated, nil
}

// SubmitFeedback は面接官の評価を登録します。
func (s *Service) SubmitFeedback(ctx context.Context, in SubmitFeedbackInput) (*Feedback, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	interviewID, err := ids.Normalize("interviewId", in.InterviewID)
	if err != nil {
		return nil, err
	}
	interviewerID, err := ids.Normalize("interviewerId", in.InterviewerID)
	if err != nil {
		return nil, err
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if !isValidRecommendation(in.Recommendation) {
		return nil, ErrInvalidRecommendation
	}
	notes := strings.TrimSpace(in.Notes)
	if len([]rune(notes)) > maxNotesLength {
		return nil, ErrInvalidNotes
	}

	var (
		created *Feedback
		jc      *pipeline.JobCandidate
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		iv, err := s.repo.FindByID(txCtx, companyID, interviewID)
		if err != nil {
			return err
		}
		if !iv.HasPanelist(interviewerID) {
			return ErrNotPanelist
		}
		if iv.Status != StatusInProgress && iv.Status != StatusCompleted {
			return ErrFeedbackNotAllowed
		}

		now := s.clock.Now()
		result, err := s.repo.CreateFeedback(txCtx, &Feedback{
			CompanyID:      companyID,
			InterviewID:    interviewID,
			InterviewerID:  interviewerID,
			Rating:         in.Rating,
			Recommendation: in.Recommendation,
			Notes:          notes,
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		created = result

		if jc, err = s.applications.FindByID(txCtx, companyID, iv.JobCandidateID); err != nil {
			return err
		}
		return s.recordActivity(txCtx, jc, candidate.ActivityFeedbackSubmitted, interviewerID,
			fmt.Sprintf("Interview feedback submitted: %d/5 (%s)", in.Rating, in.Recommendation),
			map[string]any{"interviewId": interviewID, "rating": in.Rating}, now)
	}); err != nil {
		return nil, err
	}

	s.notify(ctx, notification.DispatchInput{
		CompanyID: companyID,
		ActorID:   interviewerID,
		Type:      notification.TypeFeedbackSubmitted,
		Title:     "Interview feedback submitted",
		Message:   fmt.Sprintf("Feedback submitted for %s", jc.CandidateName),
		Payload:   map[string]any{"interviewId": interviewID, "jobCandidateId": jc.ID},
	})
	return created, nil
}

// Get は面接を評価付きで取得します。
func (s *Service) Get(ctx context.Context, companyID, id string) (*Interview, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return nil, err
	}
	interviewID, err := ids.Normalize("id", id)
	if err != nil {
		return nil, err
	}

	var found *Interview
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.FindByID(txCtx, cid, interviewID)
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

// ListByApplication は応募の面接を予定日時順に返します。
func (s *Service) ListByApplication(ctx context.Context, companyID, jobCandidateID string) ([]*Interview, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return nil, err
	}
	jcID, err := ids.Normalize("jobCandidateId", jobCandidateID)
	if err != nil {
		return nil, err
	}

	var out []*Interview
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := s.applications.FindByID(txCtx, cid, jcID); err != nil {
			return err
		}
		result, err := s.repo.ListByJobCandidate(txCtx, cid, jcID)
		if err != nil {
			return err
		}
		out = result
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) recordActivity(ctx context.Context, jc *pipeline.JobCandidate, typ candidate.ActivityType, actorID, description string, metadata map[string]any, at time.Time) error {
	if s.activities == nil {
		return nil
	}
	_, err := s.activities.CreateActivity(ctx, &candidate.Activity{
		CompanyID:      jc.CompanyID,
		CandidateID:    jc.CandidateID,
		JobCandidateID: &jc.ID,
		Type:           typ,
		Description:    description,
		ActorID:        &actorID,
		Metadata:       metadata,
		CreatedAt:      at,
	})
	return err
}

// notify は通知を配信します。失敗はログに記録するのみです。
func (s *Service) notify(ctx context.Context, in notification.DispatchInput) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Dispatch(context.WithoutCancel(ctx), in); err != nil {
		s.logger.WarnContext(ctx, "interview notification failed",
			slog.String("type", string(in.Type)),
			slog.String("company_id", in.CompanyID),
			slog.Any("error", err),
		)
	}
}

func isValidMode(mode Mode) bool {
	switch mode {
	case ModeOnsite, ModeVideo, ModePhone:
		return true
	default:
		return false
	}
}

func isValidStatus(status Status) bool {
	switch status {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

func isValidRecommendation(r Recommendation) bool {
	switch r {
	case RecommendStrongYes, RecommendYes, RecommendNo, RecommendStrongNo:
		return true
	default:
		return false
	}
}
