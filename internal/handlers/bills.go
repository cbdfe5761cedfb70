package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splittab/backend/internal/middleware"
	"github.com/splittab/backend/internal/models"
	"github.com/splittab/backend/internal/services"
	"github.com/splittab/backend/pkg/logger"
	"github.com/splittab/backend/pkg/utils"
)

type BillsHandler struct {
	Bills  *services.BillService
	Splits *services.SplitService
}

func NewBillsHandler(bills *services.BillService, splits *services.SplitService) *BillsHandler {
	return &BillsHandler{Bills: bills, Splits: splits}
}

type createBillRequest struct {
	GroupID        string   `json:"groupID"`
	Title          string   `json:"title"`
	Description    *string  `json:"description"`
	Currency       string   `json:"currency"`
	TaxAmount      string   `json:"taxAmount"`
	TipAmount      string   `json:"tipAmount"`
	SplitMethod    string   `json:"splitMethod"`
	ParticipantIDs []string `json:"participantIDs"`
}

func (h *BillsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req createBillRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	groupID, err := parseUUID(req.GroupID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
	}
	tax, err := parseAmount(req.TaxAmount)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid tax amount")
	}
	tip, err := parseAmount(req.TipAmount)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid tip amount")
	}
	participants, err := parseUUIDList(req.ParticipantIDs)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid participant id")
	}

	bill, err := h.Bills.CreateBill(c.Context(), user.ID, services.CreateBillInput{
		GroupID:        groupID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
		TaxAmount:      tax,
		TipAmount:      tip,
		SplitMethod:    models.SplitMethod(strings.ToLower(strings.TrimSpace(req.SplitMethod))),
		ParticipantIDs: participants,
	})
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "bill_created", map[string]interface{}{
		"bill_id":      bill.ID,
		"group_id":     bill.GroupID,
		"split_method": bill.SplitMethod,
	})

	return utils.Success(c, fiber.StatusCreated, bill)
}

func (h *BillsHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var groupID *uuid.UUID
	if raw := c.Query("groupID"); raw != "" {
		parsed, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid group id")
		}
		groupID = &parsed
	}

	var status *models.BillStatus
	if raw := c.Query("status"); raw != "" {
		value := models.BillStatus(strings.ToLower(raw))
		switch value {
		case models.BillStatusDraft, models.BillStatusPending, models.BillStatusApproved,
			models.BillStatusSettled, models.BillStatusCancelled:
			status = &value
		default:
			return utils.Error(c, fiber.StatusBadRequest, "invalid status filter")
		}
	}

	bills, err := h.Bills.ListBillsForUser(c.Context(), user.ID, groupID, status)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, bills)
}

func (h *BillsHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	billID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid bill id")
	}

	bill, err := h.Bills.GetBill(c.Context(), user.ID, billID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, bill)
}

type addItemRequest struct {
	Name        string   `json:"name"`
	Quantity    int      `json:"quantity"`
	Rate        string   `json:"rate"`
	Category    *string  `json:"category"`
	AssigneeIDs []string `json:"assigneeIDs"`
}

func (h *BillsHandler) AddItem(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	billID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid bill id")
	}

	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	rate, err := parseAmount(req.Rate)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid rate")
	}
	assignees, err := parseUUIDList(req.AssigneeIDs)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid assignee id")
	}

	item, err := h.Bills.AddItem(c.Context(), user.ID, billID, services.AddItemInput{
		Name:        strings.TrimSpace(req.Name),
		Quantity:    req.Quantity,
		Rate:        rate,
		Category:    req.Category,
		AssigneeIDs: assignees,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusCreated, item)
}

func (h *BillsHandler) RemoveItem(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	billID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid bill id")
	}
	itemID, err := parseUUID(c.Params("itemId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid item id")
	}

	if err := h.Bills.RemoveItem(c.Context(), user.ID, billID, itemID); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *BillsHandler) Submit(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	billID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid bill id")
	}

	bill, err := h.Bills.SubmitBill(c.Context(), user.ID, billID)
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "bill_submitted", map[string]interface{}{
		"bill_id": bill.ID,
	})

	return utils.Success(c, fiber.StatusOK, bill)
}

type approveBillRequest struct {
	CustomAmounts map[string]string `json:"customAmounts"`
}

func (h *BillsHandler) Approve(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	billID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid bill id")
	}

	var req approveBillRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	var customAmounts map[uuid.UUID]decimal.Decimal
	if len(req.CustomAmounts) > 0 {
		customAmounts = make(map[uuid.UUID]decimal.Decimal, len(req.CustomAmounts))
		for rawID, rawAmount := range req.CustomAmounts {
			userID, err := parseUUID(rawID)
			if err != nil {
				return utils.Error(c, fiber.StatusBadRequest, "invalid user id in custom amounts")
			}
			amount, err := decimal.NewFromString(rawAmount)
			if err != nil {
				return utils.Error(c, fiber.StatusBadRequest, "invalid amount in custom amounts")
			}
			customAmounts[userID] = amount
		}
	}

	bill, err := h.Bills.ApproveBill(c.Context(), user.ID, billID, customAmounts)
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "bill_approved", map[string]interface{}{
		"bill_id": bill.ID,
	})

	return utils.Success(c, fiber.StatusOK, bill)
}

func (h *BillsHandler) Cancel(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	billID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid bill id")
	}

	bill, err := h.Bills.CancelBill(c.Context(), user.ID, billID)
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "bill_cancelled", map[string]interface{}{
		"bill_id": bill.ID,
	})

	return utils.Success(c, fiber.StatusOK, bill)
}

func (h *BillsHandler) ListSplits(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	billID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid bill id")
	}

	// Visibility is the bill's; reuse its access check before listing.
	if _, err := h.Bills.GetBill(c.Context(), user.ID, billID); err != nil {
		return serviceError(c, err)
	}

	splits, err := h.Splits.ListBillSplits(c.Context(), billID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.StatusOK, splits)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(raw))
}

func parseUUIDList(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := parseUUID(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
