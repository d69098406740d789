package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/thenetcircle/dino-framework/internal/httpx"
	"github.com/thenetcircle/dino-framework/internal/models"
	"github.com/thenetcircle/dino-framework/internal/service"
)

func paramUserID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("user_id"), 10, 64)
}

// queryPage reads the paging params shared by every listing endpoint:
// until as unix seconds with optional fraction (zero means "now"), and
// per_page capped at 100.
func queryPage(c *fiber.Ctx) (models.PageQuery, error) {
	query := models.PageQuery{PerPage: 100}

	if raw := c.Query("until"); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return query, fmt.Errorf("invalid until %q", raw)
		}
		query.Until = time.UnixMicro(int64(seconds * 1e6)).UTC()
	}
	if raw := c.Query("per_page"); raw != "" {
		perPage, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || perPage < 1 {
			return query, fmt.Errorf("invalid per_page %q", raw)
		}
		if perPage > 100 {
			perPage = 100
		}
		query.PerPage = perPage
	}
	return query, nil
}

func queryAdminID(c *fiber.Ctx) (*int64, error) {
	raw := c.Query("admin_id")
	if raw == "" {
		return nil, nil
	}
	adminID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid admin_id %q", raw)
	}
	return &adminID, nil
}

// serviceError maps service sentinels onto the response envelope.
func serviceError(c *fiber.Ctx, err error) error {
	if service.IsNotFound(err) {
		return httpx.NotFound(c, "not_found", err.Error())
	}
	return httpx.Internal(c, "internal_error")
}
