package company

import "github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"

var (
	// ErrCompanyNotFound は会社が存在しない場合に返却されます。
	ErrCompanyNotFound = apperr.NotFound("company not found")
	// ErrSlugAlreadyExists はスラッグ重複時に返却されます。
	ErrSlugAlreadyExists = apperr.Conflict("company slug already exists")
	// ErrInvalidName は会社名が不正な場合に返却されます。
	ErrInvalidName = apperr.Invalid("name", "must be set")
	// ErrInvalidSlug はスラッグが不正な場合に返却されます。
	ErrInvalidSlug = apperr.Invalid("slug", "must match ^[a-z0-9][a-z0-9_-]*$")
	// ErrInvalidStatus はステータスが不正な場合に返却されます。
	ErrInvalidStatus = apperr.Invalid("status", "must be active or inactive")
)
