package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/splittab/backend/internal/models"
	"github.com/splittab/backend/pkg/utils"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB *gorm.DB
}

func NewUsersHandler(db *gorm.DB) *UsersHandler {
	return &UsersHandler{DB: db}
}

// Search powers the add-member picker: a small, capped lookup by email or
// name, available to any authenticated user.
func (h *UsersHandler) Search(c *fiber.Ctx) error {
	search := strings.TrimSpace(c.Query("search"))
	limit := c.QueryInt("limit", 5)
	if limit > 50 {
		limit = 50
	}

	query := h.DB.Model(&models.User{})
	if search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			searchValue,
			searchValue,
			searchValue,
		)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed searching users")
	}

	return utils.Success(c, fiber.StatusOK, users)
}
