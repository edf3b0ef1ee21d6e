package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// ReadinessChecker は依存先へ到達できるかを確認します。
type ReadinessChecker interface {
	Check(ctx context.Context) error
}

// HealthHandler は死活監視と準備完了確認のハンドラーです。
type HealthHandler struct {
	readiness ReadinessChecker
}

// NewHealthHandler は HealthHandler を生成します。readiness が nil なら /ready は常に成功します。
func NewHealthHandler(readiness ReadinessChecker) *HealthHandler {
	return &HealthHandler{readiness: readiness}
}

// Live はプロセスが応答できることを返します。
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready はデータベースへの疎通を確認します。
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if h.readiness != nil {
		if err := h.readiness.Check(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
