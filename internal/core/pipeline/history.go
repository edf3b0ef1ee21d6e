package pipeline

import (
	"context"
	"time"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/job"
)

// Recorder はステージ滞在の記録を追記します。呼び出し側のトランザクション内で利用します。
type Recorder struct {
	repo HistoryRepository
}

// NewRecorder は Recorder を生成します。
func NewRecorder(repo HistoryRepository) *Recorder {
	return &Recorder{repo: repo}
}

// Enter は現在の滞在記録を閉じ、stage への新しい記録を開きます。
// 閉じた記録が無い場合(初回応募)は closed が nil になります。
func (r *Recorder) Enter(ctx context.Context, jc *JobCandidate, stage *job.Stage, movedBy *string, comment string, at time.Time) (closed, opened *StageHistory, err error) {
	closed, err = r.repo.CloseOpen(ctx, jc.ID, at)
	if err != nil {
		return nil, nil, err
	}

	opened, err = r.repo.Open(ctx, &StageHistory{
		CompanyID:      jc.CompanyID,
		JobCandidateID: jc.ID,
		StageID:        stage.ID,
		StageName:      stage.Name,
		EnteredAt:      at,
		Comment:        comment,
		MovedBy:        movedBy,
	})
	if err != nil {
		return nil, nil, err
	}
	return closed, opened, nil
}
