package interview

import "github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"

var (
	ErrInterviewNotFound        = apperr.NotFound("interview: not found")
	ErrInvalidMode              = apperr.Invalid("mode", "must be one of onsite, video, phone")
	ErrInvalidDuration          = apperr.Invalid("durationMinutes", "must be between 15 and 480")
	ErrScheduledInPast          = apperr.Invalid("scheduledAt", "must be in the future")
	ErrEmptyPanel               = apperr.Invalid("panel", "must contain at least one interviewer")
	ErrPanelistNotMember        = apperr.Invalid("panel", "interviewers must be active members of the company")
	ErrInvalidStatus            = apperr.Invalid("status", "must be one of scheduled, in_progress, completed, cancelled, no_show")
	ErrInvalidTransition        = apperr.Invalid("status", "transition is not allowed from the current status")
	ErrInvalidRating            = apperr.Invalid("rating", "must be between 1 and 5")
	ErrInvalidRecommendation    = apperr.Invalid("recommendation", "must be one of strong_yes, yes, no, strong_no")
	ErrFeedbackNotAllowed       = apperr.Invalid("status", "feedback can only be submitted for in_progress or completed interviews")
	ErrInvalidNotes             = apperr.Invalid("notes", "must be at most 5000 characters")
	ErrNotPanelist              = apperr.Forbidden("interview: only panel members can submit feedback")
	ErrFeedbackAlreadySubmitted = apperr.Conflict("interview: feedback already submitted")
)
