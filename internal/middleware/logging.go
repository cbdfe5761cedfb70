package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/splittab/backend/pkg/logger"
)

// RequestLogger emits one structured line per request with latency and a
// request id, tagged with the authenticated user when one is present.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		c.Locals("requestID", requestID)

		err := c.Next()

		details := map[string]interface{}{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency_ms": time.Since(start).Milliseconds(),
			"ip":         c.IP(),
		}
		if user := GetCurrentUser(c); user != nil {
			logger.InfoWithUser(user.ID.String(), "http_request", details)
		} else {
			logger.Info("http_request", details)
		}
		return err
	}
}

// SecurityLogger flags authentication and authorization failures so they can
// be alerted on separately from normal traffic.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if status == fiber.StatusUnauthorized || status == fiber.StatusForbidden {
			details := map[string]interface{}{
				"method": c.Method(),
				"path":   c.Path(),
				"status": status,
				"ip":     c.IP(),
			}
			if userID := logger.GetUserIDFromContext(c); userID != nil {
				logger.WarnWithUser(*userID, "security_event", details)
			} else {
				logger.Warn("security_event", details)
			}
		}
		return err
	}
}
