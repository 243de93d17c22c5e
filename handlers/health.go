package handlers

import (
	"github.com/furnirent/furnirent-api/database"
	"github.com/furnirent/furnirent-api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// HandleCheckHealth reports API and database health.
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "Database unavailable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
