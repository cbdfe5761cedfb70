package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/splittab/backend/internal/middleware"
	"github.com/splittab/backend/internal/services"
	"github.com/splittab/backend/pkg/utils"
)

type NotificationsHandler struct {
	Notifications *services.NotificationService
}

func NewNotificationsHandler(notifications *services.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{Notifications: notifications}
}

func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	notifications, total, err := h.Notifications.List(c.Context(), user.ID, page, limit)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Paginated(c, notifications, page, limit, total)
}

func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	count, err := h.Notifications.UnreadCount(c.Context(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"count": count})
}

func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	notificationID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid notification id")
	}

	if err := h.Notifications.MarkRead(c.Context(), user.ID, notificationID); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"read": true})
}

func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	if err := h.Notifications.MarkAllRead(c.Context(), user.ID); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"read": true})
}
