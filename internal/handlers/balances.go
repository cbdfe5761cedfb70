package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/splittab/backend/internal/middleware"
	"github.com/splittab/backend/internal/services"
	"github.com/splittab/backend/pkg/utils"
)

type BalancesHandler struct {
	Balances *services.BalanceService
}

func NewBalancesHandler(balances *services.BalanceService) *BalancesHandler {
	return &BalancesHandler{Balances: balances}
}

func (h *BalancesHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var groupID *uuid.UUID
	if raw := c.Query("groupID"); raw != "" {
		parsed, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
		}
		groupID = &parsed
	}

	summary, err := h.Balances.ComputeBalances(c.Context(), user.ID, groupID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, summary)
}
