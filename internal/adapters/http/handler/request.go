package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/ogurasousui/codex-ats-pipeline/internal/core/paging"
)

// parseBody は JSON 本文を v に読み込みます。
func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return errInvalidBody
	}
	return nil
}

// pageQuery は pageSize と pageToken クエリを読み取ります。
func pageQuery(c *fiber.Ctx) (pageSize int, pageToken string, err error) {
	if raw := strings.TrimSpace(c.Query("pageSize")); raw != "" {
		pageSize, err = strconv.Atoi(raw)
		if err != nil || pageSize < 0 {
			return 0, "", paging.ErrInvalidPageSize
		}
	}
	return pageSize, c.Query("pageToken"), nil
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}
