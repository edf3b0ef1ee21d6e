package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/candidate"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/ids"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/usecase"
)

const (
	// MaxBulkSize は一括移動で受け付ける最大件数です。
	MaxBulkSize      = 200
	maxCommentLength = 2000
)

// Service は応募とステージ遷移のユースケースをまとめます。
type Service struct {
	applications ApplicationRepository
	recorder     *Recorder
	history      HistoryRepository
	jobs         JobReader
	candidates   CandidateReader
	activities   ActivityWriter
	members      MemberChecker
	hooks        []PostCommitHook
	hookTimeout  time.Duration
	logger       *slog.Logger
	clock        usecase.Clock
	tx           usecase.TransactionManager
}

// UseCase はパイプラインユースケースの公開インターフェースです。
type UseCase interface {
	Apply(ctx context.Context, in ApplyInput) (*JobCandidate, error)
	MoveCandidate(ctx context.Context, in MoveInput) (*MoveResult, error)
	BulkMove(ctx context.Context, in BulkMoveInput) (*BulkMoveResult, error)
	GetApplication(ctx context.Context, companyID, id string) (*JobCandidate, error)
	ListApplications(ctx context.Context, in ListApplicationsInput) (*ListApplicationsResult, error)
	Board(ctx context.Context, companyID, jobID string) (*Board, error)
	GetStageHistory(ctx context.Context, companyID, jobCandidateID string) ([]*StageHistory, error)
}

// Deps は Service の依存関係です。Members, Hooks, Logger, Clock, Tx は省略できます。
type Deps struct {
	Applications ApplicationRepository
	History      HistoryRepository
	Jobs         JobReader
	Candidates   CandidateReader
	Activities   ActivityWriter
	Members      MemberChecker
	Hooks        []PostCommitHook
	HookTimeout  time.Duration
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
	timeout := d.HookTimeout
	if timeout <= 0 {
		timeout = defaultHookTimeout
	}
	return &Service{
		applications: d.Applications,
		recorder:     NewRecorder(d.History),
		history:      d.History,
		jobs:         d.Jobs,
		candidates:   d.Candidates,
		activities:   d.Activities,
		members:      d.Members,
		hooks:        d.Hooks,
		hookTimeout:  timeout,
		logger:       logger,
		clock:        clock,
		tx:           tx,
	}
}

// ApplyInput は応募登録時の入力です。
type ApplyInput struct {
	CompanyID   string
	JobID       string
	CandidateID string
	ActorID     string
	Comment     string
}

// MoveInput は単一の応募を移動する際の入力です。
type MoveInput struct {
	CompanyID      string
	JobCandidateID string
	TargetStageID  string
	MovedBy        string
	Comment        string
}

// MoveResult は単一移動の結果です。
type MoveResult struct {
	Application *JobCandidate
	History     *StageHistory
}

// BulkMoveInput は一括移動の入力です。CandidateIDs は JobID の求人に応募済みの応募者 ID です。
type BulkMoveInput struct {
	CompanyID     string
	JobID         string
	CandidateIDs  []string
	TargetStageID string
	MovedBy       string
	Comment       string
}

// ListApplicationsInput は応募一覧取得時の入力です。
type ListApplicationsInput struct {
	CompanyID   string
	JobID       string
	CandidateID string
	StageID     string
	PageSize    int
	PageToken   string
}

// ListApplicationsResult は応募一覧の取得結果です。
type ListApplicationsResult struct {
	Applications  []*JobCandidate
	NextPageToken string
}

// Board は求人のステージごとに応募を並べたものです。
type Board struct {
	Job     *job.Job
	Columns []BoardColumn
}

// BoardColumn はボードの 1 列です。
type BoardColumn struct {
	Stage        *job.Stage
	Applications []*JobCandidate
}

// Apply は応募者を求人の先頭ステージに登録します。
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*JobCandidate, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	jobID, err := ids.Normalize("jobId", in.JobID)
	if err != nil {
		return nil, err
	}
	candidateID, err := ids.Normalize("candidateId", in.CandidateID)
	if err != nil {
		return nil, err
	}
	actorID, err := ids.Normalize("actorId", in.ActorID)
	if err != nil {
		return nil, err
	}
	comment, err := normalizeComment(in.Comment)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMember(ctx, companyID, actorID); err != nil {
		return nil, err
	}

	var (
		created *JobCandidate
		event   StageChangedEvent
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		j, err := s.jobs.FindByID(txCtx, companyID, jobID)
		if err != nil {
			return err
		}
		if j.Status == job.StatusClosed {
			return ErrJobClosed
		}
		first, ok := j.FirstStage()
		if !ok {
			return ErrJobHasNoStages
		}

		c, err := s.candidates.FindByID(txCtx, companyID, candidateID)
		if err != nil {
			return err
		}

		existing, err := s.applications.FindByJobAndCandidate(txCtx, companyID, jobID, candidateID)
		if err != nil && !errors.Is(err, ErrApplicationNotFound) {
			return err
		}
		if existing != nil {
			return ErrAlreadyApplied
		}

		now := s.clock.Now()
		jc, err := s.applications.Create(txCtx, &JobCandidate{
			CompanyID:      companyID,
			JobID:          jobID,
			CandidateID:    candidateID,
			CurrentStageID: first.ID,
			AppliedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return err
		}

		if _, _, err := s.recorder.Enter(txCtx, jc, first, &actorID, comment, now); err != nil {
			return err
		}

		description := fmt.Sprintf("Applied to %s in stage %s", j.Title, first.Name)
		if comment != "" {
			description += ": " + comment
		}
		if _, err := s.activities.CreateActivity(txCtx, &candidate.Activity{
			CompanyID:      companyID,
			CandidateID:    candidateID,
			JobCandidateID: &jc.ID,
			Type:           candidate.ActivityApplied,
			Description:    description,
			ActorID:        &actorID,
			Metadata:       map[string]any{"jobId": jobID, "stageId": first.ID},
			CreatedAt:      now,
		}); err != nil {
			return err
		}

		jc.CandidateName = c.Name
		jc.JobTitle = j.Title
		jc.CurrentStageName = first.Name
		created = jc
		event = StageChangedEvent{
			Kind:           EventApplied,
			CompanyID:      companyID,
			JobCandidateID: jc.ID,
			JobID:          jobID,
			JobTitle:       j.Title,
			CandidateID:    candidateID,
			CandidateName:  c.Name,
			ToStageID:      first.ID,
			ToStageName:    first.Name,
			ActorID:        actorID,
			Comment:        comment,
			OccurredAt:     now,
		}
		return nil
	}); err != nil {
		return nil, err
	}

	s.runHooks(ctx, []StageChangedEvent{event})
	return created, nil
}

// MoveCandidate は応募を同じ求人内の任意のステージへ移動します。
func (s *Service) MoveCandidate(ctx context.Context, in MoveInput) (*MoveResult, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	jobCandidateID, err := ids.Normalize("jobCandidateId", in.JobCandidateID)
	if err != nil {
		return nil, err
	}
	targetStageID, err := ids.Normalize("targetStageId", in.TargetStageID)
	if err != nil {
		return nil, err
	}
	movedBy, err := ids.Normalize("movedBy", in.MovedBy)
	if err != nil {
		return nil, err
	}
	comment, err := normalizeComment(in.Comment)
	if err != nil {
		return nil, err
	}
	if err := s.ensureMember(ctx, companyID, movedBy); err != nil {
		return nil, err
	}

	var (
		result *MoveResult
		event  StageChangedEvent
	)
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		jc, err := s.applications.FindByIDForUpdate(txCtx, companyID, jobCandidateID)
		if err != nil {
			return err
		}
		j, err := s.jobs.FindByID(txCtx, companyID, jc.JobID)
		if err != nil {
			return err
		}
		result, event, err = s.applyMove(txCtx, j, jc, targetStageID, movedBy, comment)
		return err
	}); err != nil {
		return nil, err
	}

	s.runHooks(ctx, []StageChangedEvent{event})
	return result, nil
}

// BulkMove は複数の応募を同じステージへ移動します。
// 各応募は個別のトランザクションで処理され、失敗は件数として集計されます。
// 求人やステージなどリクエスト全体に関わる検証エラーの場合のみエラーを返します。
func (s *Service) BulkMove(ctx context.Context, in BulkMoveInput) (*BulkMoveResult, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	jobID, err := ids.Normalize("jobId", in.JobID)
	if err != nil {
		return nil, err
	}
	targetStageID, err := ids.Normalize("targetStageId", in.TargetStageID)
	if err != nil {
		return nil, err
	}
	movedBy, err := ids.Normalize("movedBy", in.MovedBy)
	if err != nil {
		return nil, err
	}
	comment, err := normalizeComment(in.Comment)
	if err != nil {
		return nil, err
	}
	if len(in.CandidateIDs) == 0 {
		return nil, ErrEmptyBulk
	}
	if len(in.CandidateIDs) > MaxBulkSize {
		return nil, ErrBulkTooLarge
	}
	if err := s.ensureMember(ctx, companyID, movedBy); err != nil {
		return nil, err
	}

	var j *job.Job
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.jobs.FindByID(txCtx, companyID, jobID)
		if err != nil {
			return err
		}
		j = found
		return nil
	}); err != nil {
		return nil, err
	}
	if _, ok := j.StageByID(targetStageID); !ok {
		return nil, ErrStageNotInJob
	}

	result := &BulkMoveResult{}
	events := make([]StageChangedEvent, 0, len(in.CandidateIDs))
	for _, raw := range in.CandidateIDs {
		event, err := s.moveByCandidate(ctx, j, raw, targetStageID, movedBy, comment)
		if err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, MoveFailure{CandidateID: raw, Err: err})
			s.logger.InfoContext(ctx, "bulk move item failed",
				slog.String("company_id", companyID),
				slog.String("job_id", jobID),
				slog.String("candidate_id", raw),
				slog.Any("error", err),
			)
			continue
		}
		result.MovedCount++
		events = append(events, event)
	}

	s.runHooks(ctx, events)
	return result, nil
}

func (s *Service) moveByCandidate(ctx context.Context, j *job.Job, rawCandidateID, targetStageID, movedBy, comment string) (StageChangedEvent, error) {
	candidateID, err := ids.Normalize("candidateIds", rawCandidateID)
	if err != nil {
		return StageChangedEvent{}, err
	}

	var event StageChangedEvent
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		jc, err := s.applications.FindByJobAndCandidateForUpdate(txCtx, j.CompanyID, j.ID, candidateID)
		if err != nil {
			return err
		}
		_, event, err = s.applyMove(txCtx, j, jc, targetStageID, movedBy, comment)
		return err
	})
	return event, err
}

// applyMove は履歴の更新、現在ステージの更新、タイムラインへの記録を行います。
// 呼び出し側のトランザクション内で実行されます。
func (s *Service) applyMove(ctx context.Context, j *job.Job, jc *JobCandidate, targetStageID, movedBy, comment string) (*MoveResult, StageChangedEvent, error) {
	target, ok := j.StageByID(targetStageID)
	if !ok {
		return nil, StageChangedEvent{}, ErrStageNotInJob
	}
	if jc.CurrentStageID == target.ID {
		return nil, StageChangedEvent{}, ErrAlreadyInStage
	}

	c, err := s.candidates.FindByID(ctx, jc.CompanyID, jc.CandidateID)
	if err != nil {
		return nil, StageChangedEvent{}, err
	}

	now := s.clock.Now()
	closed, opened, err := s.recorder.Enter(ctx, jc, target, &movedBy, comment, now)
	if err != nil {
		return nil, StageChangedEvent{}, err
	}

	if err := s.applications.UpdateCurrentStage(ctx, jc.CompanyID, jc.ID, target.ID, now); err != nil {
		return nil, StageChangedEvent{}, err
	}

	fromID, fromName := jc.CurrentStageID, ""
	if from, ok := j.StageByID(jc.CurrentStageID); ok {
		fromName = from.Name
	} else if closed != nil {
		fromName = closed.StageName
	}

	if _, err := s.activities.CreateActivity(ctx, &candidate.Activity{
		CompanyID:      jc.CompanyID,
		CandidateID:    jc.CandidateID,
		JobCandidateID: &jc.ID,
		Type:           candidate.ActivityStageChange,
		Description:    stageChangeDescription(fromName, target.Name, comment),
		ActorID:        &movedBy,
		Metadata: map[string]any{
			"jobId":       j.ID,
			"fromStageId": fromID,
			"toStageId":   target.ID,
		},
		CreatedAt: now,
	}); err != nil {
		return nil, StageChangedEvent{}, err
	}

	jc.CurrentStageID = target.ID
	jc.CurrentStageName = target.Name
	jc.UpdatedAt = now
	jc.CandidateName = c.Name
	jc.JobTitle = j.Title

	event := StageChangedEvent{
		Kind:           EventStageChanged,
		CompanyID:      jc.CompanyID,
		JobCandidateID: jc.ID,
		JobID:          j.ID,
		JobTitle:       j.Title,
		CandidateID:    jc.CandidateID,
		CandidateName:  c.Name,
		FromStageID:    fromID,
		FromStageName:  fromName,
		ToStageID:      target.ID,
		ToStageName:    target.Name,
		ActorID:        movedBy,
		Comment:        comment,
		OccurredAt:     now,
	}
	return &MoveResult{Application: jc, History: opened}, event, nil
}

// GetApplication は応募を取得します。
func (s *Service) GetApplication(ctx context.Context, companyID, id string) (*JobCandidate, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return nil, err
	}
	jobCandidateID, err := ids.Normalize("id", id)
	if err != nil {
		return nil, err
	}

	var found *JobCandidate
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.applications.FindByID(txCtx, cid, jobCandidateID)
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

// ListApplications は応募の一覧を取得します。
func (s *Service) ListApplications(ctx context.Context, in ListApplicationsInput) (*ListApplicationsResult, error) {
	companyID, err := ids.Normalize("companyId", in.CompanyID)
	if err != nil {
		return nil, err
	}
	filter := ListApplicationsFilter{CompanyID: companyID}
	if strings.TrimSpace(in.JobID) != "" {
		if filter.JobID, err = ids.Normalize("jobId", in.JobID); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(in.CandidateID) != "" {
		if filter.CandidateID, err = ids.Normalize("candidateId", in.CandidateID); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(in.StageID) != "" {
		stageID, err := ids.Normalize("stageId", in.StageID)
		if err != nil {
			return nil, err
		}
		filter.StageID = &stageID
	}
	if filter.Limit, filter.Offset, err = paging.Normalize(in.PageSize, in.PageToken); err != nil {
		return nil, err
	}

	result := &ListApplicationsResult{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		apps, next, err := s.applications.List(txCtx, filter)
		if err != nil {
			return err
		}
		result.Applications = apps
		result.NextPageToken = next
		return nil
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// Board は求人の全応募をステージごとにまとめて返します。
func (s *Service) Board(ctx context.Context, companyID, jobID string) (*Board, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return nil, err
	}
	jid, err := ids.Normalize("jobId", jobID)
	if err != nil {
		return nil, err
	}

	board := &Board{}
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		j, err := s.jobs.FindByID(txCtx, cid, jid)
		if err != nil {
			return err
		}
		board.Job = j

		byStage := make(map[string][]*JobCandidate, len(j.Stages))
		offset := 0
		for {
			apps, next, err := s.applications.List(txCtx, ListApplicationsFilter{
				CompanyID: cid,
				JobID:     jid,
				Limit:     paging.MaxPageSize,
				Offset:    offset,
			})
			if err != nil {
				return err
			}
			for _, app := range apps {
				byStage[app.CurrentStageID] = append(byStage[app.CurrentStageID], app)
			}
			if next == "" {
				break
			}
			offset += paging.MaxPageSize
		}

		board.Columns = make([]BoardColumn, 0, len(j.Stages))
		for _, st := range j.Stages {
			board.Columns = append(board.Columns, BoardColumn{Stage: st, Applications: byStage[st.ID]})
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return board, nil
}

// GetStageHistory は応募のステージ履歴を入室順に返します。
func (s *Service) GetStageHistory(ctx context.Context, companyID, jobCandidateID string) ([]*StageHistory, error) {
	cid, err := ids.Normalize("companyId", companyID)
	if err != nil {
		return nil, err
	}
	id, err := ids.Normalize("id", jobCandidateID)
	if err != nil {
		return nil, err
	}

	var out []*StageHistory
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := s.applications.FindByID(txCtx, cid, id); err != nil {
			return err
		}
		rows, err := s.history.ListByJobCandidate(txCtx, id)
		if err != nil {
			return err
		}
		out = rows
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ensureMember(ctx context.Context, companyID, userID string) error {
	if s.members == nil {
		return nil
	}
	ok, err := s.members.IsActiveMember(ctx, companyID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMoverNotMember
	}
	return nil
}

func normalizeComment(raw string) (string, error) {
	comment := strings.TrimSpace(raw)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return "", ErrCommentTooLong
	}
	return comment, nil
}

func stageChangeDescription(from, to, comment string) string {
	var b strings.Builder
	if from != "" {
		b.WriteString("Moved from " + from + " to " + to)
	} else {
		b.WriteString("Moved to " + to)
	}
	if comment != "" {
		b.WriteString(": " + comment)
	}
	return b.String()
}
