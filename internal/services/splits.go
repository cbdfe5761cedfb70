package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/splittab/backend/internal/models"
	"gorm.io/gorm"
)

// SplitService drives the payment-verification state machine on a split:
//
//	pending → submitted → confirmed
//	submitted → rejected → submitted (resubmission)
//
// Confirmation of the last outstanding split settles the bill within the
// same transaction, so a bill can never be settled with an unconfirmed
// split and a confirmed split can never belong to a non-settled,
// non-cancelled bill.
type SplitService struct {
	DB            *gorm.DB
	Memberships   *MembershipService
	Notifications *NotificationService
}

func NewSplitService(db *gorm.DB, memberships *MembershipService, notifications *NotificationService) *SplitService {
	return &SplitService{DB: db, Memberships: memberships, Notifications: notifications}
}

type SubmitProofInput struct {
	UpiReference  *string
	ProofImageURL *string
}

// SubmitProof records a payment claim on the caller's own split. At least
// one proof artifact (UPI reference or screenshot URL) is required. A
// rejected split may be resubmitted; resubmission clears the prior
// rejection reason.
func (s *SplitService) SubmitProof(ctx context.Context, actorID, splitID uuid.UUID, in SubmitProofInput) (*models.Split, error) {
	var split *models.Split
	err := withConcurrencyRetry(func() error {
		var err error
		split, err = s.submitProof(ctx, actorID, splitID, in)
		return err
	})
	return split, err
}

func (s *SplitService) submitProof(ctx context.Context, actorID, splitID uuid.UUID, in SubmitProofInput) (*models.Split, error) {
	split, err := s.loadSplit(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if split.UserID != actorID {
		return nil, ErrUnauthorized
	}
	if split.Bill.Status != models.BillStatusApproved {
		return nil, ErrInvalidState
	}
	if split.PaymentStatus != models.PaymentStatusPending && split.PaymentStatus != models.PaymentStatusRejected {
		return nil, ErrInvalidState
	}
	hasRef := in.UpiReference != nil && *in.UpiReference != ""
	hasImage := in.ProofImageURL != nil && *in.ProofImageURL != ""
	if !hasRef && !hasImage {
		return nil, ErrMissingProof
	}

	previous := split.PaymentStatus
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"payment_status":   models.PaymentStatusSubmitted,
			"approval_status":  models.ApprovalStatusApproved,
			"rejection_reason": nil,
		}
		if hasRef {
			updates["upi_reference"] = *in.UpiReference
		}
		if hasImage {
			updates["proof_image_url"] = *in.ProofImageURL
		}
		result := tx.Model(&models.Split{}).
			Where("id = ? AND payment_status = ?", splitID, previous).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentModification
		}

		admins, err := s.verifierIDs(tx, &split.Bill)
		if err != nil {
			return err
		}
		message := fmt.Sprintf("Payment proof submitted for bill %q", split.Bill.Title)
		return s.Notifications.notify(tx, actorID, models.NotificationProofSubmitted, split.BillID, &splitID, message, admins)
	})
	if err != nil {
		return nil, err
	}

	return s.loadSplit(ctx, splitID)
}

// ConfirmSplit verifies a submitted payment. Only a group admin or the bill
// creator may confirm, and never their own split: the self-confirmation
// check runs before the role check so a creator confirming their own share
// gets the self-confirmation error, not an authorization one.
func (s *SplitService) ConfirmSplit(ctx context.Context, actorID, splitID uuid.UUID) (*models.Split, error) {
	var split *models.Split
	err := withConcurrencyRetry(func() error {
		var err error
		split, err = s.confirmSplit(ctx, actorID, splitID)
		return err
	})
	return split, err
}

func (s *SplitService) confirmSplit(ctx context.Context, actorID, splitID uuid.UUID) (*models.Split, error) {
	split, err := s.loadSplit(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if split.UserID == actorID {
		return nil, ErrSelfConfirmation
	}
	if err := s.requireVerifier(ctx, &split.Bill, actorID); err != nil {
		return nil, err
	}
	if split.PaymentStatus != models.PaymentStatusSubmitted {
		return nil, ErrInvalidState
	}

	now := time.Now().UTC()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Split{}).
			Where("id = ? AND payment_status = ?", splitID, models.PaymentStatusSubmitted).
			Updates(map[string]interface{}{
				"payment_status": models.PaymentStatusConfirmed,
				"paid":           true,
				"paid_at":        now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentModification
		}

		message := fmt.Sprintf("Your payment for bill %q was confirmed", split.Bill.Title)
		err := s.Notifications.notify(tx, actorID, models.NotificationSplitConfirmed, split.BillID, &splitID, message, []uuid.UUID{split.UserID})
		if err != nil {
			return err
		}

		return s.settleIfComplete(tx, &split.Bill, actorID, now)
	})
	if err != nil {
		return nil, err
	}

	return s.loadSplit(ctx, splitID)
}

// settleIfComplete moves the bill approved → settled once no unconfirmed,
// uncancelled split remains. settled_at equals the final confirmation's
// paid_at so the ledger timestamps agree.
func (s *SplitService) settleIfComplete(tx *gorm.DB, bill *models.Bill, actorID uuid.UUID, paidAt time.Time) error {
	var outstanding int64
	err := tx.Model(&models.Split{}).
		Where("bill_id = ? AND payment_status NOT IN ?", bill.ID,
			[]models.PaymentStatus{models.PaymentStatusConfirmed, models.PaymentStatusCancelled}).
		Count(&outstanding).Error
	if err != nil {
		return err
	}
	if outstanding > 0 {
		return nil
	}

	result := tx.Model(&models.Bill{}).
		Where("id = ? AND status = ?", bill.ID, models.BillStatusApproved).
		Updates(map[string]interface{}{
			"status":     models.BillStatusSettled,
			"settled_at": paidAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConcurrentModification
	}

	var splits []models.Split
	if err := tx.Where("bill_id = ?", bill.ID).Find(&splits).Error; err != nil {
		return err
	}
	recipients := make([]uuid.UUID, 0, len(splits)+1)
	recipients = append(recipients, bill.CreatedByID)
	for _, split := range splits {
		recipients = append(recipients, split.UserID)
	}
	message := fmt.Sprintf("Bill %q is fully settled", bill.Title)
	return s.Notifications.notify(tx, actorID, models.NotificationBillSettled, bill.ID, nil, message, recipients)
}

// RejectSplit sends a submitted payment claim back to its holder with a
// mandatory reason, opening the resubmission path.
func (s *SplitService) RejectSplit(ctx context.Context, actorID, splitID uuid.UUID, reason string) (*models.Split, error) {
	var split *models.Split
	err := withConcurrencyRetry(func() error {
		var err error
		split, err = s.rejectSplit(ctx, actorID, splitID, reason)
		return err
	})
	return split, err
}

func (s *SplitService) rejectSplit(ctx context.Context, actorID, splitID uuid.UUID, reason string) (*models.Split, error) {
	if reason == "" {
		return nil, ErrMissingReason
	}

	split, err := s.loadSplit(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if split.UserID == actorID {
		return nil, ErrSelfConfirmation
	}
	if err := s.requireVerifier(ctx, &split.Bill, actorID); err != nil {
		return nil, err
	}
	if split.PaymentStatus != models.PaymentStatusSubmitted {
		return nil, ErrInvalidState
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Split{}).
			Where("id = ? AND payment_status = ?", splitID, models.PaymentStatusSubmitted).
			Updates(map[string]interface{}{
				"payment_status":   models.PaymentStatusRejected,
				"approval_status":  models.ApprovalStatusRejected,
				"rejection_reason": reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrConcurrentModification
		}

		message := fmt.Sprintf("Your payment proof for bill %q was rejected: %s", split.Bill.Title, reason)
		return s.Notifications.notify(tx, actorID, models.NotificationSplitRejected, split.BillID, &splitID, message, []uuid.UUID{split.UserID})
	})
	if err != nil {
		return nil, err
	}

	return s.loadSplit(ctx, splitID)
}

// GetSplitForViewer loads a split for its holder or one of the bill's
// verifiers; everyone else gets a not-found.
func (s *SplitService) GetSplitForViewer(ctx context.Context, actorID, splitID uuid.UUID) (*models.Split, error) {
	split, err := s.loadSplit(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if split.UserID == actorID {
		return split, nil
	}
	if err := s.requireVerifier(ctx, &split.Bill, actorID); err != nil {
		return nil, ErrSplitNotFound
	}
	return split, nil
}

// ListBillSplits returns all splits of a bill the caller can see via
// BillService visibility rules; callers should check bill access first.
func (s *SplitService) ListBillSplits(ctx context.Context, billID uuid.UUID) ([]models.Split, error) {
	var splits []models.Split
	err := s.DB.WithContext(ctx).
		Preload("User").
		Where("bill_id = ?", billID).
		Order("created_at ASC").
		Find(&splits).Error
	return splits, err
}

func (s *SplitService) requireVerifier(ctx context.Context, bill *models.Bill, actorID uuid.UUID) error {
	if bill.CreatedByID == actorID {
		return nil
	}
	isAdmin, err := s.Memberships.IsAdmin(ctx, bill.GroupID, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return ErrUnauthorized
	}
	return nil
}

func (s *SplitService) verifierIDs(tx *gorm.DB, bill *models.Bill) ([]uuid.UUID, error) {
	var memberships []models.Membership
	err := tx.Where("group_id = ? AND role = ?", bill.GroupID, models.MembershipRoleAdmin).Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(memberships)+1)
	ids = append(ids, bill.CreatedByID)
	for _, membership := range memberships {
		ids = append(ids, membership.UserID)
	}
	return ids, nil
}

func (s *SplitService) loadSplit(ctx context.Context, splitID uuid.UUID) (*models.Split, error) {
	var split models.Split
	err := s.DB.WithContext(ctx).
		Preload("Bill").
		First(&split, "id = ?", splitID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSplitNotFound
		}
		return nil, err
	}
	return &split, nil
}
