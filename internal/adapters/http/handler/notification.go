package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/apperr"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/notification"
)

var errInvalidUnreadOnly = apperr.Invalid("unreadOnly", "must be true or false")

// NotificationHandler は通知 API のハンドラーです。すべて認証済みの利用者宛ての通知に限定されます。
type NotificationHandler struct {
	svc notification.UseCase
}

// NewNotificationHandler は NotificationHandler を生成します。
func NewNotificationHandler(svc notification.UseCase) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List は利用者宛ての通知と未読件数を返します。
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := userScope(c)
	if err != nil {
		return err
	}
	companyID, err := companyScope(c)
	if err != nil {
		return err
	}
	pageSize, pageToken, err := pageQuery(c)
	if err != nil {
		return err
	}
	unreadOnly := false
	if raw := c.Query("unreadOnly"); raw != "" {
		unreadOnly, err = strconv.ParseBool(raw)
		if err != nil {
			return errInvalidUnreadOnly
		}
	}

	result, err := h.svc.List(c.UserContext(), notification.ListInput{
		CompanyID:  companyID,
		UserID:     userID,
		UnreadOnly: unreadOnly,
		PageSize:   pageSize,
		PageToken:  pageToken,
	})
	if err != nil {
		return err
	}
	items := make([]notificationResponse, 0, len(result.Notifications))
	for _, n := range result.Notifications {
		items = append(items, toNotificationResponse(n))
	}
	return c.JSON(fiber.Map{
		"notifications": items,
		"unreadCount":   result.UnreadCount,
		"nextPageToken": result.NextPageToken,
	})
}

// MarkAsRead は通知を既読にします。
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	p := principalFrom(c)
	if err := h.svc.MarkAsRead(c.UserContext(), p.CompanyID, p.UserID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// MarkAllAsRead は利用者宛ての通知をすべて既読にします。
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := userScope(c)
	if err != nil {
		return err
	}
	updated, err := h.svc.MarkAllAsRead(c.UserContext(), principalFrom(c).CompanyID, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "updated": updated})
}
