package candidate

import "github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"

var (
	// ErrCandidateNotFound は応募者が存在しない場合に返却されます。
	ErrCandidateNotFound = apperr.NotFound("candidate: not found")
	// ErrEmailAlreadyExists は同じ会社に同じメールアドレスの応募者がいる場合に返却されます。
	ErrEmailAlreadyExists = apperr.Conflict("candidate: email already exists in the company")
	ErrInvalidName        = apperr.Invalid("name", "must be set")
	ErrInvalidEmail       = apperr.Invalid("email", "must be a valid address")
)
