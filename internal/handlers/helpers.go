package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/splittab/backend/internal/services"
	"github.com/splittab/backend/pkg/logger"
	"github.com/splittab/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// serviceError translates an engine error into the HTTP envelope. Anything
// the engine did not classify is treated as an internal failure and logged
// rather than leaked to the client.
func serviceError(c *fiber.Ctx, err error) error {
	switch services.KindOf(err) {
	case services.ErrorKindValidation:
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case services.ErrorKindState:
		return utils.Error(c, fiber.StatusConflict, err.Error())
	case services.ErrorKindAuthorization:
		return utils.Error(c, fiber.StatusForbidden, err.Error())
	case services.ErrorKindNotFound:
		return utils.Error(c, fiber.StatusNotFound, err.Error())
	case services.ErrorKindConcurrency:
		return utils.Error(c, fiber.StatusConflict, err.Error())
	default:
		logger.Error("unhandled_service_error", err, map[string]interface{}{
			"path":   c.Path(),
			"method": c.Method(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
