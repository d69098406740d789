package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/thenetcircle/dino-framework/internal/httpx"
	"github.com/thenetcircle/dino-framework/internal/models"
	"github.com/thenetcircle/dino-framework/internal/service"
)

type UserHandler struct {
	conversations *service.ConversationService
}

func NewUserHandler(conversations *service.ConversationService) *UserHandler {
	return &UserHandler{conversations: conversations}
}

func (h *UserHandler) GetUserGroupStats(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	stats, err := h.conversations.UserGroupStats(c.UserContext(), c.Params("group_id"), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(stats)
}

func (h *UserHandler) UpdateUserGroupStats(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	var req models.UserGroupStatsPatch
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}

	err = h.conversations.UpdateUserGroupStats(c.UserContext(), c.Params("group_id"), userID, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stats updated"})
}

func (h *UserHandler) GetUserStats(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	stats, err := h.conversations.UserStats(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(stats)
}

func (h *UserHandler) GetOneToOneInfo(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}
	otherID, err := strconv.ParseInt(c.Params("other_id"), 10, 64)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	info, err := h.conversations.OneToOneInfo(c.UserContext(), userID, otherID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(info)
}
