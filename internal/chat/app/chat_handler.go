package app

import (
	"errors"

	"service_marketplace/internal/chat/domain"
	"service_marketplace/pkg/logger"
	"service_marketplace/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHandler REST surface of the chat service
type ChatHandler struct {
	messageUC   *MessageUseCase
	directoryUC *DirectoryUseCase
}

// NewChatHandler create ChatHandler
func NewChatHandler(messageUC *MessageUseCase, directoryUC *DirectoryUseCase) *ChatHandler {
	return &ChatHandler{messageUC: messageUC, directoryUC: directoryUC}
}

// SendRequest body of POST /api/v1/chat/send
type SendRequest struct {
	ReceiverID  string `json:"receiverId"`
	Message     string `json:"message"`
	Body        string `json:"body"`
	ClientMsgID string `json:"clientMsgId"`
}

// Send persist a message and push it to both rooms
// @Summary Send a direct message
// @Description Persists the message, then pushes it to the receiver's and the sender's rooms
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body SendRequest true "message"
// @Success 200 {object} map[string]interface{} "success, message"
// @Failure 400 {object} map[string]interface{} "validation error"
// @Failure 401 {object} map[string]interface{} "missing or invalid token"
// @Failure 503 {object} map[string]interface{} "store unavailable"
// @Router /api/v1/chat/send [post]
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	memberID, ok := middlewares.MemberID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Missing token")
	}

	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "invalid request")
	}
	body := req.Message
	if body == "" {
		body = req.Body
	}

	ev, err := h.messageUC.Send(c.UserContext(), memberID, req.ReceiverID, body, req.ClientMsgID)
	if err != nil {
		return failureFromErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "message": ev})
}

// History messages between the caller and another member
// @Summary Conversation history
// @Description Every message between the caller and otherUserId, oldest first
// @Tags Chat
// @Produce json
// @Param otherUserId path string true "peer identity"
// @Success 200 {object} map[string]interface{} "success, messages"
// @Failure 400 {object} map[string]interface{} "validation error"
// @Failure 503 {object} map[string]interface{} "store unavailable"
// @Router /api/v1/chat/messages/{otherUserId} [get]
func (h *ChatHandler) History(c *fiber.Ctx) error {
	memberID, ok := middlewares.MemberID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Missing token")
	}

	msgs, err := h.messageUC.History(c.UserContext(), memberID, c.Params("otherUserId"))
	if err != nil {
		return failureFromErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "messages": msgs})
}

// Users chat directory of the caller
// @Summary Chat directory
// @Description Everyone the caller has exchanged messages with, with display names
// @Tags Chat
// @Produce json
// @Success 200 {object} map[string]interface{} "success, chatUsers"
// @Failure 503 {object} map[string]interface{} "store unavailable"
// @Router /api/v1/chat/users [get]
func (h *ChatHandler) Users(c *fiber.Ctx) error {
	memberID, ok := middlewares.MemberID(c)
	if !ok {
		return failure(c, fiber.StatusUnauthorized, "Missing token")
	}

	peers, err := h.directoryUC.ListPeers(c.UserContext(), memberID)
	if err != nil {
		return failureFromErr(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "chatUsers": peers})
}

func failure(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}

func failureFromErr(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	if status >= fiber.StatusInternalServerError {
		logger.Log.Error("chat request", zap.String("path", c.Path()), zap.Error(err))
	}
	return failure(c, status, errorMessage(err))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
