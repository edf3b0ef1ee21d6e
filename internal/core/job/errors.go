package job

import "github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"

var (
	ErrJobNotFound        = apperr.NotFound("job: not found")
	ErrStageNotFound      = apperr.NotFound("job: stage not found")
	ErrInvalidTitle       = apperr.Invalid("title", "must be set")
	ErrInvalidStatus      = apperr.Invalid("status", "must be one of draft, open, closed")
	ErrInvalidStageName   = apperr.Invalid("stages", "stage name must be set")
	ErrDuplicateStageName = apperr.Invalid("stages", "stage names must be unique within a job")
	ErrRecruiterNotMember = apperr.Invalid("recruiterId", "must be an active member of the company")
	ErrStageNameTooLong   = apperr.Invalid("stages", "stage name must be at most 100 characters")
)
