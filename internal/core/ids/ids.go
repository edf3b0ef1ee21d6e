package ids

import (
	"strings"

	"github.com/google/uuid"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"
)

// Normalize は UUID 形式の ID を検証し、正規化した文字列を返します。
func Normalize(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", apperr.Invalid(field, "must be set")
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return "", apperr.Invalid(field, "must be a valid UUID")
	}
	return id.String(), nil
}

// NormalizeAll は ID 一覧を検証し、重複を除いた順序付きの一覧を返します。
func NormalizeAll(field string, raws []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raws))
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		id, err := Normalize(field, raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
