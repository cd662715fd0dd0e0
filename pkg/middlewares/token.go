package middlewares

import (
	"strings"

	t_token "community_messaging_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	// QueryToken token in query name, used by websocket handshakes
	QueryToken = "auth"

	// CookieToken token in cookie name
	CookieToken = "auth_token"

	// TokenUserID get user from token, set c.locals name
	TokenUserID = "UserID"
	// TokenRole get role from token, set c.locals name
	TokenRole = "role"
)

// JWTMiddleware validates the bearer credential before any handler or
// websocket upgrade runs. A rejected connection never reaches a group.
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Authorization header first, then query (websocket clients
		// can't set headers), then cookie
		tokenStr := ""
		if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
			tokenStr = auth[7:]
		}
		if tokenStr == "" {
			tokenStr = c.Query(QueryToken)
		}
		if tokenStr == "" {
			tokenStr = c.Cookies(CookieToken)
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWT(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenUserID, claims.UserID)
		c.Locals(TokenRole, claims.Role)

		return c.Next()
	}
}
