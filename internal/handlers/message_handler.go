package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/thenetcircle/dino-framework/internal/httpx"
	"github.com/thenetcircle/dino-framework/internal/models"
	"github.com/thenetcircle/dino-framework/internal/service"
)

type MessageHandler struct {
	conversations *service.ConversationService
}

func NewMessageHandler(conversations *service.ConversationService) *MessageHandler {
	return &MessageHandler{conversations: conversations}
}

func (h *MessageHandler) SendToGroup(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	var req models.SendMessageQuery
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if req.MessagePayload == "" {
		return httpx.BadRequest(c, "missing_payload", "Message payload is required")
	}

	message, err := h.conversations.Send(c.UserContext(), c.Params("group_id"), userID, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

func (h *MessageHandler) SendToUser(c *fiber.Ctx) error {
	senderID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}
	receiverID, err := strconv.ParseInt(c.Params("receiver_id"), 10, 64)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid receiver ID")
	}
	if senderID == receiverID {
		return httpx.BadRequest(c, "invalid_receiver", "Cannot send to yourself")
	}

	var req models.SendMessageQuery
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if req.MessagePayload == "" {
		return httpx.BadRequest(c, "missing_payload", "Message payload is required")
	}

	message, err := h.conversations.SendOneToOne(c.UserContext(), senderID, receiverID, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	err = h.conversations.DeleteMessage(c.UserContext(), c.Params("group_id"), userID, c.Params("message_id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted"})
}

func (h *MessageHandler) DeleteGroupMessages(c *fiber.Ctx) error {
	adminID, err := queryAdminID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_admin_id", "Invalid admin_id")
	}

	amount, err := h.conversations.DeleteGroupMessages(c.UserContext(), c.Params("group_id"), adminID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": amount})
}

func (h *MessageHandler) DeleteUserMessages(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}
	adminID, err := queryAdminID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_admin_id", "Invalid admin_id")
	}

	amount, err := h.conversations.DeleteUserMessages(c.UserContext(), c.Params("group_id"), userID, adminID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": amount})
}

func (h *MessageHandler) CreateAttachment(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	var req models.CreateAttachmentQuery
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequest(c, "invalid_body", "Invalid request body")
	}
	if req.FileID == "" {
		return httpx.BadRequest(c, "missing_file_id", "File ID is required")
	}

	message, err := h.conversations.CreateAttachment(c.UserContext(), c.Params("group_id"), userID, c.Params("message_id"), &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

func (h *MessageHandler) GetAttachment(c *fiber.Ctx) error {
	fileID := c.Query("file_id")
	if fileID == "" {
		return httpx.BadRequest(c, "missing_file_id", "File ID is required")
	}

	message, err := h.conversations.AttachmentByFileID(c.UserContext(), c.Params("group_id"), fileID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(message)
}

func (h *MessageHandler) DeleteAttachment(c *fiber.Ctx) error {
	fileID := c.Query("file_id")
	if fileID == "" {
		return httpx.BadRequest(c, "missing_file_id", "File ID is required")
	}

	message, err := h.conversations.DeleteAttachment(c.UserContext(), c.Params("group_id"), fileID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(message)
}

func (h *MessageHandler) DeleteUserAttachments(c *fiber.Ctx) error {
	userID, err := paramUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user ID")
	}

	messages, err := h.conversations.DeleteUserAttachments(c.UserContext(), c.Params("group_id"), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": len(messages)})
}
