package member

import "github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"

var (
	ErrInvalidRole         = apperr.Invalid("role", "must be one of admin, recruiter, hiring_manager, interviewer")
	ErrInvalidStatus       = apperr.Invalid("status", "must be active or inactive")
	ErrMemberNotFound      = apperr.NotFound("member: not found")
	ErrUserNotFound        = apperr.NotFound("member: user not found")
	ErrCompanyNotFound     = apperr.NotFound("member: company not found")
	ErrMemberAlreadyExists = apperr.Conflict("member: user already belongs to the company")
)
