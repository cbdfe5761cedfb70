package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splittab/backend/internal/models"
	"github.com/splittab/backend/internal/splitter"
	"gorm.io/gorm"
)

// BillService owns the bill lifecycle state machine:
//
//	draft → pending → approved → settled
//	pending|approved → cancelled
//
// Items are mutable only in draft. Approval materializes one split per
// participant; settlement is never caller-invoked — it happens inside
// SplitService.ConfirmSplit the instant the last split confirms.
type BillService struct {
	DB            *gorm.DB
	Memberships   *MembershipService
	Notifications *NotificationService

	// DefaultCurrency is stamped on bills created without an explicit
	// currency. Configured per deployment; falls back to INR.
	DefaultCurrency string
}

func NewBillService(db *gorm.DB, memberships *MembershipService, notifications *NotificationService, defaultCurrency string) *BillService {
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	return &BillService{
		DB:              db,
		Memberships:     memberships,
		Notifications:   notifications,
		DefaultCurrency: defaultCurrency,
	}
}

type CreateBillInput struct {
	GroupID        uuid.UUID
	Title          string
	Description    *string
	Currency       string
	TaxAmount      decimal.Decimal
	TipAmount      decimal.Decimal
	SplitMethod    models.SplitMethod
	ParticipantIDs []uuid.UUID
}

func (s *BillService) CreateBill(ctx context.Context, actorID uuid.UUID, in CreateBillInput) (*models.Bill, error) {
	if in.Title == "" {
		return nil, validationError("title is required")
	}
	switch in.SplitMethod {
	case models.SplitMethodEqual, models.SplitMethodByItem, models.SplitMethodCustom:
	default:
		return nil, validationError("invalid split method")
	}
	if in.TaxAmount.IsNegative() || in.TipAmount.IsNegative() {
		return nil, validationError("tax and tip cannot be negative")
	}
	if in.Currency == "" {
		in.Currency = s.DefaultCurrency
	}

	if _, err := s.Memberships.Membership(ctx, in.GroupID, actorID); err != nil {
		if errors.Is(err, ErrNotAMember) {
			return nil, ErrNotGroupMember
		}
		return nil, err
	}

	// Equal and custom methods record the participant set up front; by_item
	// derives it from item assignees at approval time.
	participants, err := s.validateParticipants(ctx, in)
	if err != nil {
		return nil, err
	}

	bill := &models.Bill{
		GroupID:     in.GroupID,
		CreatedByID: actorID,
		Title:       in.Title,
		Description: in.Description,
		Currency:    in.Currency,
		TaxAmount:   in.TaxAmount,
		TipAmount:   in.TipAmount,
		TotalAmount: in.TaxAmount.Add(in.TipAmount),
		SplitMethod: in.SplitMethod,
		Status:      models.BillStatusDraft,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bill).Error; err != nil {
			return err
		}
		for _, userID := range participants {
			row := models.BillParticipant{BillID: bill.ID, UserID: userID}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func (s *BillService) validateParticipants(ctx context.Context, in CreateBillInput) ([]uuid.UUID, error) {
	if in.SplitMethod == models.SplitMethodByItem {
		if len(in.ParticipantIDs) > 0 {
			return nil, validationError("by_item bills derive participants from item assignees")
		}
		return nil, nil
	}

	if len(in.ParticipantIDs) == 0 {
		return nil, validationError("at least one participant is required")
	}

	seen := make(map[uuid.UUID]bool, len(in.ParticipantIDs))
	participants := make([]uuid.UUID, 0, len(in.ParticipantIDs))
	for _, userID := range in.ParticipantIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		isMember, err := s.Memberships.IsMember(ctx, in.GroupID, userID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, validationError(fmt.Sprintf("participant %s is not a member of the group", userID))
		}
		participants = append(participants, userID)
	}
	return participants, nil
}

type AddItemInput struct {
	Name        string
	Quantity    int
	Rate        decimal.Decimal
	Category    *string
	AssigneeIDs []uuid.UUID
}

// AddItem appends a line item to a draft bill and recomputes the derived
// total. A negative rate is rejected outright, never clamped: clamping would
// silently under-bill a participant.
func (s *BillService) AddItem(ctx context.Context, actorID, billID uuid.UUID, in AddItemInput) (*models.BillItem, error) {
	var item *models.BillItem
	err := withConcurrencyRetry(func() error {
		var err error
		item, err = s.addItem(ctx, actorID, billID, in)
		return err
	})
	return item, err
}

func (s *BillService) addItem(ctx context.Context, actorID, billID uuid.UUID, in AddItemInput) (*models.BillItem, error) {
	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.CreatedByID != actorID {
		return nil, ErrUnauthorized
	}
	if !bill.IsEditable() {
		return nil, ErrBillLocked
	}

	if in.Name == "" {
		return nil, validationError("item name is required")
	}
	if in.Quantity < 1 {
		return nil, validationError("quantity must be at least 1")
	}
	if in.Rate.IsNegative() {
		return nil, validationError("rate cannot be negative")
	}
	for _, assignee := range in.AssigneeIDs {
		isMember, err := s.Memberships.IsMember(ctx, bill.GroupID, assignee)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, validationError(fmt.Sprintf("assignee %s is not a member of the group", assignee))
		}
	}

	item := &models.BillItem{
		BillID:   billID,
		Name:     in.Name,
		Quantity: in.Quantity,
		Rate:     in.Rate,
		Price:    in.Rate.Mul(decimal.NewFromInt(int64(in.Quantity))),
		Category: in.Category,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		for _, assignee := range in.AssigneeIDs {
			row := models.ItemAssignee{BillItemID: item.ID, UserID: assignee}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return s.recomputeTotal(tx, bill)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *BillService) RemoveItem(ctx context.Context, actorID, billID, itemID uuid.UUID) error {
	return withConcurrencyRetry(func() error {
		return s.removeItem(ctx, actorID, billID, itemID)
	})
}

func (s *BillService) removeItem(ctx context.Context, actorID, billID, itemID uuid.UUID) error {
	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return err
	}
	if bill.CreatedByID != actorID {
		return ErrUnauthorized
	}
	if !bill.IsEditable() {
		return ErrBillLocked
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.BillItem
		if err := tx.First(&item, "id = ? AND bill_id = ?", itemID, billID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		if err := tx.Where("bill_item_id = ?", itemID).Delete(&models.ItemAssignee{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.BillItem{}, "id = ?", itemID).Error; err != nil {
			return err
		}
		return s.recomputeTotal(tx, bill)
	})
}

// recomputeTotal rederives total_amount = sum(item.price) + tax + tip.
// The write is conditional on the bill still being a draft: a submit that
// committed between the editability check and this transaction leaves
// RowsAffected at zero, rolling the whole item mutation back.
func (s *BillService) recomputeTotal(tx *gorm.DB, bill *models.Bill) error {
	var items []models.BillItem
	if err := tx.Where("bill_id = ?", bill.ID).Find(&items).Error; err != nil {
		return err
	}
	total := bill.TaxAmount.Add(bill.TipAmount)
	for _, item := range items {
		total = total.Add(item.Price)
	}
	res := tx.Model(&models.Bill{}).
		Where("id = ? AND status = ?", bill.ID, models.BillStatusDraft).
		Update("total_amount", total)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// SubmitBill moves draft → pending and freezes items. Requires at least one
// item and a positive total. Group admins are notified that a bill awaits
// their approval.
func (s *BillService) SubmitBill(ctx context.Context, actorID, billID uuid.UUID) (*models.Bill, error) {
	var bill *models.Bill
	err := withConcurrencyRetry(func() error {
		var err error
		bill, err = s.submitBill(ctx, actorID, billID)
		return err
	})
	return bill, err
}

func (s *BillService) submitBill(ctx context.Context, actorID, billID uuid.UUID) (*models.Bill, error) {
	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill.CreatedByID != actorID {
		return nil, ErrUnauthorized
	}
	if bill.Status != models.BillStatusDraft {
		return nil, ErrBillLocked
	}

	var itemCount int64
	if err := s.DB.WithContext(ctx).Model(&models.BillItem{}).Where("bill_id = ?", billID).Count(&itemCount).Error; err != nil {
		return nil, err
	}
	if itemCount == 0 {
		return nil, ErrEmptyBill
	}
	if !bill.TotalAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Bill{}).
			Where("id = ? AND status = ?", billID, models.BillStatusDraft).
			Update("status", models.BillStatusPending)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentModification
		}

		admins, err := s.groupAdminIDs(tx, bill.GroupID)
		if err != nil {
			return err
		}
		message := fmt.Sprintf("Bill %q was submitted for approval", bill.Title)
		return s.Notifications.notify(tx, actorID, models.NotificationBillSubmitted, billID, nil, message, admins)
	})
	if err != nil {
		return nil, err
	}

	bill.Status = models.BillStatusPending
	return bill, nil
}

// ApproveBill moves pending → approved and materializes one split per
// participant in the same transaction. Admin-only. customAmounts is required
// for (and only for) bills with the custom split method.
func (s *BillService) ApproveBill(ctx context.Context, actorID, billID uuid.UUID, customAmounts map[uuid.UUID]decimal.Decimal) (*models.Bill, error) {
	var bill *models.Bill
	err := withConcurrencyRetry(func() error {
		var err error
		bill, err = s.approveBill(ctx, actorID, billID, customAmounts)
		return err
	})
	return bill, err
}

func (s *BillService) approveBill(ctx context.Context, actorID, billID uuid.UUID, customAmounts map[uuid.UUID]decimal.Decimal) (*models.Bill, error) {
	bill, err := s.loadBillFull(ctx, billID)
	if err != nil {
		return nil, err
	}

	isAdmin, err := s.Memberships.IsAdmin(ctx, bill.GroupID, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrUnauthorized
	}
	if bill.Status != models.BillStatusPending {
		return nil, ErrAlreadyProcessed
	}

	shares, err := s.computeShares(bill, customAmounts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Bill{}).
			Where("id = ? AND status = ?", billID, models.BillStatusPending).
			Updates(map[string]interface{}{
				"status":      models.BillStatusApproved,
				"approved_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentModification
		}

		recipients := make([]uuid.UUID, 0, len(shares))
		for userID, amount := range shares {
			split := models.Split{
				BillID: billID,
				UserID: userID,
				Amount: amount,
			}
			if err := tx.Create(&split).Error; err != nil {
				return err
			}
			recipients = append(recipients, userID)
		}

		message := fmt.Sprintf("Bill %q was approved, your share is due", bill.Title)
		return s.Notifications.notify(tx, actorID, models.NotificationBillApproved, billID, nil, message, recipients)
	})
	if err != nil {
		return nil, err
	}

	bill.Status = models.BillStatusApproved
	bill.ApprovedAt = &now
	return bill, nil
}

func (s *BillService) computeShares(bill *models.Bill, customAmounts map[uuid.UUID]decimal.Decimal) (map[uuid.UUID]decimal.Decimal, error) {
	participants := make([]uuid.UUID, 0, len(bill.Participants))
	for _, p := range bill.Participants {
		participants = append(participants, p.UserID)
	}

	var shares map[uuid.UUID]decimal.Decimal
	var err error
	switch bill.SplitMethod {
	case models.SplitMethodEqual:
		shares, err = splitter.Equal(bill.TotalAmount, participants, bill.CreatedByID)
	case models.SplitMethodByItem:
		items := make([]splitter.Item, len(bill.Items))
		for i, item := range bill.Items {
			assignees := make([]uuid.UUID, len(item.Assignees))
			for j, assignee := range item.Assignees {
				assignees[j] = assignee.UserID
			}
			items[i] = splitter.Item{Price: item.Price, Assignees: assignees}
		}
		shares, err = splitter.ByItem(items, bill.TaxAmount, bill.TipAmount, bill.CreatedByID)
	case models.SplitMethodCustom:
		if customAmounts == nil {
			return nil, validationError("custom split requires per-participant amounts")
		}
		shares, err = splitter.Custom(bill.TotalAmount, customAmounts, participants, bill.CreatedByID)
	default:
		return nil, validationError("invalid split method")
	}
	if err != nil {
		return nil, validationError(err.Error())
	}
	return shares, nil
}

// CancelBill moves pending|approved → cancelled. Admin-only. Cancelling an
// approved bill also cancels every split that was not already confirmed.
func (s *BillService) CancelBill(ctx context.Context, actorID, billID uuid.UUID) (*models.Bill, error) {
	var bill *models.Bill
	err := withConcurrencyRetry(func() error {
		var err error
		bill, err = s.cancelBill(ctx, actorID, billID)
		return err
	})
	return bill, err
}

func (s *BillService) cancelBill(ctx context.Context, actorID, billID uuid.UUID) (*models.Bill, error) {
	bill, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}

	isAdmin, err := s.Memberships.IsAdmin(ctx, bill.GroupID, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrUnauthorized
	}
	if bill.Status != models.BillStatusPending && bill.Status != models.BillStatusApproved {
		return nil, ErrNotCancellable
	}

	previous := bill.Status
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Bill{}).
			Where("id = ? AND status = ?", billID, previous).
			Update("status", models.BillStatusCancelled)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentModification
		}

		var holders []uuid.UUID
		if previous == models.BillStatusApproved {
			var splits []models.Split
			if err := tx.Where("bill_id = ?", billID).Find(&splits).Error; err != nil {
				return err
			}
			for _, split := range splits {
				holders = append(holders, split.UserID)
			}
			if err := tx.Model(&models.Split{}).
				Where("bill_id = ? AND payment_status <> ?", billID, models.PaymentStatusConfirmed).
				Update("payment_status", models.PaymentStatusCancelled).Error; err != nil {
				return err
			}
		}

		message := fmt.Sprintf("Bill %q was cancelled", bill.Title)
		return s.Notifications.notify(tx, actorID, models.NotificationBillCancelled, billID, nil, message, holders)
	})
	if err != nil {
		return nil, err
	}

	bill.Status = models.BillStatusCancelled
	return bill, nil
}

// GetBill loads a bill for a caller. Group admins and the creator always see
// it; other members only when the bill is eligible for them.
func (s *BillService) GetBill(ctx context.Context, actorID, billID uuid.UUID) (*models.Bill, error) {
	bill, err := s.loadBillFull(ctx, billID)
	if err != nil {
		return nil, err
	}

	membership, err := s.Memberships.Membership(ctx, bill.GroupID, actorID)
	if err != nil {
		if errors.Is(err, ErrNotAMember) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	if membership.Role != models.MembershipRoleAdmin && !billEligibleFor(membership, bill, actorID) {
		return nil, ErrBillNotFound
	}
	return bill, nil
}

// ListBillsForUser returns the caller's eligible bills, newest first,
// optionally narrowed to a group or a status.
func (s *BillService) ListBillsForUser(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID, status *models.BillStatus) ([]models.Bill, error) {
	query := eligibleBills(s.DB.WithContext(ctx), userID).
		Preload("Items").
		Preload("Splits").
		Order("bills.created_at DESC")
	if groupID != nil {
		query = query.Where("bills.group_id = ?", *groupID)
	}
	if status != nil {
		query = query.Where("bills.status = ?", *status)
	}

	var bills []models.Bill
	if err := query.Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

// ListGroupBills is the auditor view: every bill in the group regardless of
// join time. Admin-only for that reason.
func (s *BillService) ListGroupBills(ctx context.Context, actorID, groupID uuid.UUID) ([]models.Bill, error) {
	isAdmin, err := s.Memberships.IsAdmin(ctx, groupID, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrUnauthorized
	}

	var bills []models.Bill
	err = s.DB.WithContext(ctx).
		Preload("Items").
		Preload("Splits").
		Where("group_id = ?", groupID).
		Order("created_at DESC").
		Find(&bills).Error
	return bills, err
}

func (s *BillService) loadBill(ctx context.Context, billID uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	err := s.DB.WithContext(ctx).First(&bill, "id = ?", billID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return &bill, nil
}

func (s *BillService) loadBillFull(ctx context.Context, billID uuid.UUID) (*models.Bill, error) {
	var bill models.Bill
	err := s.DB.WithContext(ctx).
		Preload("Items.Assignees").
		Preload("Splits.User").
		Preload("Participants").
		First(&bill, "id = ?", billID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return &bill, nil
}

func (s *BillService) groupAdminIDs(tx *gorm.DB, groupID uuid.UUID) ([]uuid.UUID, error) {
	var memberships []models.Membership
	err := tx.Where("group_id = ? AND role = ?", groupID, models.MembershipRoleAdmin).Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(memberships))
	for i, membership := range memberships {
		ids[i] = membership.UserID
	}
	return ids, nil
}
