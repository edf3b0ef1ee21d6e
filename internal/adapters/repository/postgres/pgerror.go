package postgres

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
)

// pgErrorCode は err が PostgreSQL のエラーであれば SQLSTATE を返します。
func pgErrorCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

// whereBuilder は位置パラメータ付きの WHERE 句を組み立てます。
type whereBuilder struct {
	conditions []string
	args       []any
}

func (w *whereBuilder) add(condition string, arg any) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, strings.ReplaceAll(condition, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// page は LIMIT / OFFSET 句を追加し、次ページ判定用に limit+1 件を要求します。
func (w *whereBuilder) page(limit, offset int) string {
	w.args = append(w.args, limit+1)
	limitPlaceholder := "$" + strconv.Itoa(len(w.args))
	w.args = append(w.args, offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(w.args))
	return "\n         LIMIT " + limitPlaceholder + "\n        OFFSET " + offsetPlaceholder
}
