package router

import (
	"context"

	"community_messaging_service/internal/messaging/api/handlers"
	"community_messaging_service/internal/messaging/app"
	"community_messaging_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes register the messaging routes and the websocket gateway
func RegisterRoutes(r *fiber.App, messageHandler *handlers.MessageHandler, gateway *app.GatewayHandler) {
	r.Use(middlewares.JWTMiddleware())

	api := r.Group("/api/messages")
	api.Post("/", messageHandler.SendMessage)
	api.Get("/conversations", messageHandler.GetConversations)
	api.Get("/conversation/:userId", messageHandler.GetConversation)
	api.Get("/unread-count", messageHandler.GetUnreadCount)
	api.Put("/mark-read/:userId", messageHandler.MarkRead)
	api.Get("/admins", messageHandler.GetAdmins)
	api.Get("/admin/users", messageHandler.GetAdminUsers)

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		gateway.HandleConnection(context.Background(), c)
	}))
}
