package middleware

import (
	"github.com/furnirent/furnirent-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// RequireAdmin middleware ensures the user has admin role. Must run after
// AuthMiddleware.Required.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := GetUser(c)
		if !ok || user == nil {
			return response.Unauthorized(c, "Authentication required")
		}

		if !user.IsAdmin() {
			return response.Forbidden(c, "Admin access required")
		}

		return c.Next()
	}
}
