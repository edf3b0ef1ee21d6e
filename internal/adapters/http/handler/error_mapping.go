package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"
)

var errInvalidBody = apperr.Invalid("body", "must be a valid JSON object")

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// statusOf はエラー分類を HTTP ステータスへ変換します。
func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// NewErrorHandler はハンドラーが返したエラーを JSON のエラー応答に変換します。
func NewErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(errorBody{Error: errorDetail{
				Code:    codeForStatus(fiberErr.Code),
				Message: fiberErr.Message,
			}})
		}

		kind := apperr.KindOf(err)
		status := statusOf(kind)
		if status == fiber.StatusInternalServerError {
			logger.ErrorContext(c.UserContext(), "request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
			return c.Status(status).JSON(errorBody{Error: errorDetail{
				Code:    string(apperr.KindInternal),
				Message: "internal server error",
			}})
		}

		detail := errorDetail{Code: string(kind), Message: err.Error()}
		for _, f := range apperr.FieldsOf(err) {
			detail.Fields = append(detail.Fields, fieldError{Field: f.Field, Message: f.Message})
		}
		return c.Status(status).JSON(errorBody{Error: detail})
	}
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusNotFound:
		return string(apperr.KindNotFound)
	case fiber.StatusForbidden:
		return string(apperr.KindForbidden)
	case fiber.StatusRequestTimeout:
		return "timeout"
	default:
		if status >= fiber.StatusInternalServerError {
			return string(apperr.KindInternal)
		}
		return "bad_request"
	}
}
