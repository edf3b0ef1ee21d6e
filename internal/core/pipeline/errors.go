package pipeline

import "github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"

var (
	// ErrApplicationNotFound は応募が存在しない、または別テナントの場合に返却されます。
	ErrApplicationNotFound = apperr.NotFound("pipeline: application not found")
	// ErrAlreadyApplied は同じ求人への重複応募で返却されます。
	ErrAlreadyApplied = apperr.Conflict("pipeline: candidate already applied to the job")
	// ErrConcurrentStageChange は同じ応募の滞在中履歴が同時に作られようとした場合に返却されます。
	ErrConcurrentStageChange = apperr.Conflict("pipeline: application was moved concurrently")
	// ErrStageNotInJob は移動先ステージが応募先の求人に属さない場合に返却されます。
	ErrStageNotInJob = apperr.Invalid("targetStageId", "must be a stage of the same job")
	// ErrAlreadyInStage は現在と同じステージへの移動で返却されます。
	ErrAlreadyInStage = apperr.Invalid("targetStageId", "candidate is already in the stage")
	// ErrJobClosed は締め切られた求人への応募で返却されます。
	ErrJobClosed = apperr.Invalid("jobId", "job is not accepting applications")
	// ErrJobHasNoStages はステージの無い求人への応募で返却されます。
	ErrJobHasNoStages = apperr.Invalid("jobId", "job has no pipeline stages")
	// ErrMoverNotMember は操作者が会社の有効な所属者でない場合に返却されます。
	ErrMoverNotMember = apperr.Forbidden("pipeline: acting user is not an active member of the company")
	// ErrEmptyBulk は一括移動の対象が空の場合に返却されます。
	ErrEmptyBulk = apperr.Invalid("candidateIds", "must contain at least one id")
	// ErrBulkTooLarge は一括移動の対象が多すぎる場合に返却されます。
	ErrBulkTooLarge = apperr.Invalid("candidateIds", "must contain at most 200 ids")
	// ErrCommentTooLong はコメントが長すぎる場合に返却されます。
	ErrCommentTooLong = apperr.Invalid("comment", "must be at most 2000 characters")
)
