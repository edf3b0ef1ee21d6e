package paging

import (
	"strconv"
	"strings"

	"github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

var (
	// ErrInvalidPageSize は一覧取得時のページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = apperr.Invalid("pageSize", "must not exceed 200")
	// ErrInvalidPageToken は一覧取得時のページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = apperr.Invalid("pageToken", "must be a non-negative offset")
)

// Normalize はページサイズとトークンを limit / offset に変換します。
func Normalize(pageSize int, token string) (limit, offset int, err error) {
	switch {
	case pageSize <= 0:
		limit = DefaultPageSize
	case pageSize > MaxPageSize:
		return 0, 0, ErrInvalidPageSize
	default:
		limit = pageSize
	}

	if strings.TrimSpace(token) == "" {
		return limit, 0, nil
	}

	offset, convErr := strconv.Atoi(token)
	if convErr != nil || offset < 0 {
		return 0, 0, ErrInvalidPageToken
	}
	return limit, offset, nil
}

// Trim は limit+1 件取得した結果を limit 件に切り詰め、次ページのトークンを返します。
func Trim[T any](items []T, limit, offset int) ([]T, string) {
	if len(items) <= limit {
		return items, ""
	}
	return items[:limit], strconv.Itoa(offset + limit)
}
