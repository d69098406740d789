package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/thenetcircle/dino-framework/internal/httpx"
	"github.com/thenetcircle/dino-framework/internal/models"
	"github.com/thenetcircle/dino-framework/internal/service"
)

type GroupHandler struct {
	conversations *service.ConversationService
}

func NewGroupHandler(conversations *service.ConversationService) *GroupHandler {
	return &GroupHandler{conversations: conversations}
}

func (h *GroupHandler) CreateGroup(c *fiber.Ctx) error {
	ownerID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	var req models.CreateGroupQuery
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if req.GroupName == "" {
		return httpx.BadRequest(c, "missing_group_name", "Group name is required")
	}

	group, err := h.conversations.CreateGroup(c.UserContext(), ownerID, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

func (h *GroupHandler) GetUserGroups(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}
	page, err := queryPage(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_query", err.Error())
	}

	groups, err := h.conversations.GroupsForUser(c.UserContext(), userID, models.GroupQuery{
		Until:   page.Until,
		PerPage: page.PerPage,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(groups)
}

func (h *GroupHandler) GetGroupUsers(c *fiber.Ctx) error {
	users, err := h.conversations.GroupUsers(c.UserContext(), c.Params("group_id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(users)
}

func (h *GroupHandler) UpdateGroup(c *fiber.Ctx) error {
	var req models.UpdateGroupQuery
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}

	group, err := h.conversations.UpdateGroupInformation(c.UserContext(), c.Params("group_id"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(group)
}

func (h *GroupHandler) JoinGroup(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	if err := h.conversations.Join(c.UserContext(), c.Params("group_id"), userID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Joined group successfully"})
}

func (h *GroupHandler) LeaveGroup(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	if err := h.conversations.Leave(c.UserContext(), c.Params("group_id"), userID); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Left group successfully"})
}

func (h *GroupHandler) GetHistories(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}
	page, err := queryPage(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_query", err.Error())
	}

	histories, err := h.conversations.Histories(c.UserContext(), c.Params("group_id"), userID, page)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(histories)
}
