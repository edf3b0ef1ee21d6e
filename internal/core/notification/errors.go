package notification

import "github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"

var (
	// ErrNotificationNotFound は通知が存在しない、または要求者宛てでない場合に返却されます。
	ErrNotificationNotFound = apperr.NotFound("notification: not found")
	ErrInvalidType          = apperr.Invalid("type", "must be set")
	ErrInvalidTitle         = apperr.Invalid("title", "must be set")
)
