package apperr

import (
	"errors"
	"strings"
)

// Kind はエラーの分類です。HTTP 層でステータスコードへ変換されます。
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindInternal   Kind = "internal"
)

// FieldError は入力項目ごとのエラーメッセージです。
type FieldError struct {
	Field   string
	Message string
}

// Error はドメイン層から返却される分類付きエラーです。
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
}

func (e *Error) Error() string {
	return e.Message
}

// Invalid は単一項目のバリデーションエラーを生成します。
func Invalid(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: field + ": " + message,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// Validation は複数項目をまとめたバリデーションエラーを生成します。
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// NotFound は参照先が存在しない場合のエラーを生成します。
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Forbidden はテナント越境や権限不足のエラーを生成します。
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Conflict は一意制約などの競合エラーを生成します。
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// KindOf は err に含まれる分類を返します。分類が無ければ KindInternal です。
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// FieldsOf は err に含まれる項目エラーを返します。
func FieldsOf(err error) []FieldError {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

// Collector は複数のバリデーション結果を 1 つのエラーにまとめます。
type Collector struct {
	fields []FieldError
}

// Add は項目エラーを追加します。
func (c *Collector) Add(field, message string) {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
}

// AddErr は err の項目エラーを取り込みます。項目を持たないエラーはメッセージのみ記録します。
func (c *Collector) AddErr(err error) {
	if err == nil {
		return
	}
	if fields := FieldsOf(err); len(fields) > 0 {
		c.fields = append(c.fields, fields...)
		return
	}
	c.fields = append(c.fields, FieldError{Message: err.Error()})
}

// Err は収集結果をエラーとして返します。何も無ければ nil です。
func (c *Collector) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	if len(c.fields) == 1 && c.fields[0].Field != "" {
		return Invalid(c.fields[0].Field, c.fields[0].Message)
	}
	parts := make([]string, 0, len(c.fields))
	for _, f := range c.fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return Validation(strings.Join(parts, "; "), c.fields...)
}
