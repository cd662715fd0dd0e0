package handlers

import (
	"errors"
	"net/http"

	directorydomain "community_messaging_service/internal/directory/domain"
	directoryrepo "community_messaging_service/internal/directory/repository"
	"community_messaging_service/internal/messaging/app"
	"community_messaging_service/internal/messaging/repository"
	errprocess "community_messaging_service/pkg/err"
	"community_messaging_service/pkg/logger"
	"community_messaging_service/pkg/middlewares"
	"community_messaging_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// MessageHandler fiber handlers over the messaging use case
type MessageHandler struct {
	MessageUC *app.MessageUseCase
	UserRepo  directoryrepo.UserRepository
	Presence  repository.PresenceRepository
}

// NewMessageHandler create MessageHandler
func NewMessageHandler(messageUC *app.MessageUseCase, userRepo directoryrepo.UserRepository, presence repository.PresenceRepository) *MessageHandler {
	return &MessageHandler{
		MessageUC: messageUC,
		UserRepo:  userRepo,
		Presence:  presence,
	}
}

// requester identity comes only from the verified token
func requesterID(c *fiber.Ctx) string {
	userID, _ := c.Locals(middlewares.TokenUserID).(string)
	return userID
}

// statusFor map the request-level error taxonomy onto HTTP statuses;
// anything unclassified is a persistence failure
func statusFor(err error) int {
	switch {
	case errors.Is(err, errprocess.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errprocess.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errprocess.ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// SendMessage handle POST /api/messages
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	var in app.SendMessageInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}

	msg, err := h.MessageUC.Send(c.Context(), requesterID(c), in)
	if err != nil {
		logger.Log.Error("send message", zap.String("sender_id", requesterID(c)), zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(http.StatusCreated).JSON(msg)
}

// GetConversation handle GET /api/messages/conversation/:userId
func (h *MessageHandler) GetConversation(c *fiber.Ctx) error {
	otherID := c.Params("userId")
	page := int64(c.QueryInt("page", 1))
	limit := int64(c.QueryInt("limit", 50))
	ascending := c.Query("order", "asc") != "desc"

	counterpart, err := h.UserRepo.FindByUserID(c.Context(), otherID)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	messages, err := h.MessageUC.GetConversation(c.Context(), requesterID(c), otherID, page, limit, ascending)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"messages":           messages,
		"counterpart":        counterpart,
		"counterpart_online": h.Presence.IsOnline(c.Context(), otherID),
		"page":               page,
		"limit":              limit,
	})
}

// GetConversations handle GET /api/messages/conversations
func (h *MessageHandler) GetConversations(c *fiber.Ctx) error {
	conversations, err := h.MessageUC.ListConversations(c.Context(), requesterID(c))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"conversations": conversations})
}

// GetUnreadCount handle GET /api/messages/unread-count. Always computed
// from the message log, never the cached counter.
func (h *MessageHandler) GetUnreadCount(c *fiber.Ctx) error {
	total, err := h.MessageUC.UnreadTotal(c.Context(), requesterID(c))
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"unread_count": total})
}

// MarkRead handle PUT /api/messages/mark-read/:userId
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	otherID := c.Params("userId")
	if otherID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "counterpart id is required"})
	}

	count, err := h.MessageUC.MarkRead(c.Context(), requesterID(c), otherID)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"marked_read": count})
}

// GetAdmins handle GET /api/messages/admins
func (h *MessageHandler) GetAdmins(c *fiber.Ctx) error {
	return h.listCounterparts(c, string(token.RoleAdmin))
}

// GetAdminUsers handle GET /api/messages/admin/users, staff only
func (h *MessageHandler) GetAdminUsers(c *fiber.Ctx) error {
	role, _ := c.Locals(middlewares.TokenRole).(string)
	if role != string(token.RoleAdmin) {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"error": "admin only"})
	}
	return h.listCounterparts(c, string(token.RoleMember))
}

type counterpartRow struct {
	directorydomain.User
	UnreadCount int64 `json:"unread_count"`
	Online      bool  `json:"online"`
}

func (h *MessageHandler) listCounterparts(c *fiber.Ctx, role string) error {
	users, err := h.UserRepo.ListByRole(c.Context(), role)
	if err != nil {
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	me := requesterID(c)
	rows := make([]counterpartRow, 0, len(users))
	for _, user := range users {
		unread, err := h.MessageUC.UnreadForCounterpart(c.Context(), me, user.UserID)
		if err != nil {
			return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
		}
		rows = append(rows, counterpartRow{
			User:        user,
			UnreadCount: unread,
			Online:      h.Presence.IsOnline(c.Context(), user.UserID),
		})
	}

	return c.JSON(fiber.Map{"users": rows})
}
