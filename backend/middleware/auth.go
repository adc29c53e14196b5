package middleware

import (
	"skillpath/backend/config"
	"skillpath/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware validates the JWT and stashes the user ID in Locals so
// handlers do not parse the token a second time.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		c.Locals("userId", userID)
		return c.Next()
	}
}

// UserID reads the authenticated user ID set by AuthMiddleware.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userId").(uint)
	return id
}
