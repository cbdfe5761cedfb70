package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/splittab/backend/internal/middleware"
	"github.com/splittab/backend/internal/models"
	"github.com/splittab/backend/internal/services"
	"github.com/splittab/backend/pkg/logger"
	"github.com/splittab/backend/pkg/utils"
)

type GroupsHandler struct {
	Memberships *services.MembershipService
	BillsSvc    *services.BillService
}

func NewGroupsHandler(memberships *services.MembershipService, bills *services.BillService) *GroupsHandler {
	return &GroupsHandler{Memberships: memberships, BillsSvc: bills}
}

type createGroupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (h *GroupsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	group, err := h.Memberships.CreateGroup(c.Context(), user.ID, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "group_created", map[string]interface{}{
		"group_id": group.ID,
		"name":     group.Name,
	})

	return utils.Success(c, fiber.StatusCreated, group)
}

func (h *GroupsHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	groups, err := h.Memberships.ListGroups(c.Context(), user.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, groups)
}

func (h *GroupsHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	group, err := h.Memberships.GetGroup(c.Context(), user.ID, groupID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, group)
}

type joinGroupRequest struct {
	InviteCode string `json:"inviteCode"`
}

func (h *GroupsHandler) Join(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req joinGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	membership, err := h.Memberships.JoinGroup(c.Context(), user.ID, strings.ToUpper(strings.TrimSpace(req.InviteCode)))
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "group_joined", map[string]interface{}{
		"group_id": membership.GroupID,
	})

	return utils.Success(c, fiber.StatusCreated, membership)
}

type addMemberRequest struct {
	UserID string `json:"userID"`
	Role   string `json:"role"`
}

func (h *GroupsHandler) AddMember(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	var req addMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	memberID, err := parseUUID(req.UserID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}
	role := models.MembershipRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if role == "" {
		role = models.MembershipRoleMember
	}

	membership, err := h.Memberships.AddMember(c.Context(), user.ID, groupID, memberID, role)
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "group_member_added", map[string]interface{}{
		"group_id": groupID,
		"user_id":  memberID,
		"role":     role,
	})

	return utils.Success(c, fiber.StatusCreated, membership)
}

// Bills is the admin audit view over every bill in the group, including
// those predating a member's join.
func (h *GroupsHandler) Bills(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	groupID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}

	bills, err := h.BillsSvc.ListGroupBills(c.Context(), user.ID, groupID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, bills)
}
