package utils

import "github.com/gofiber/fiber/v2"

// Every endpoint responds with the same envelope: {"success": true, "data":
// ...} or {"success": false, "error": "..."}. Clients branch on the success
// flag instead of parsing error bodies per route.

// Success writes the data envelope with the given status.
func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// Error writes the error envelope. The message is client-facing; anything
// diagnostic belongs in the logs, not here.
func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Paginated writes the data envelope plus a pagination block. Callers clamp
// page and limit before calling; limit must be positive.
func Paginated(c *fiber.Ctx, data interface{}, page, limit int, total int64) error {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    data,
		"pagination": fiber.Map{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}
