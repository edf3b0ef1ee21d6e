package user

import "github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"

var (
	// ErrUserNotFound はユーザーが存在しない場合に返却されます。
	ErrUserNotFound = apperr.NotFound("user not found")
	// ErrEmailAlreadyExists はメールアドレス重複時に返却されます。
	ErrEmailAlreadyExists = apperr.Conflict("email already exists")
	// ErrInvalidEmail はメールアドレスが不正な場合に返却されます。
	ErrInvalidEmail = apperr.Invalid("email", "must be a valid address")
	// ErrInvalidName は名前が不正な場合に返却されます。
	ErrInvalidName = apperr.Invalid("name", "must be set")
	// ErrInvalidStatus はステータスが不正な場合に返却されます。
	ErrInvalidStatus = apperr.Invalid("status", "must be active or inactive")
)
