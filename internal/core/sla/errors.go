package sla

import "github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"

var (
	ErrInvalidStageName     = apperr.Invalid("stageName", "must be set")
	ErrDuplicateStageName   = apperr.Invalid("stageName", "must be unique within the company")
	ErrInvalidThreshold     = apperr.Invalid("thresholdDays", "must be between 1 and 365")
	ErrTooManyConfigEntries = apperr.Invalid("configs", "must contain at most 100 entries")
	ErrCompanyNotFound      = apperr.NotFound("sla: company not found")
)
