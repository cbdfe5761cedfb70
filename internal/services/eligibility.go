package services

import (
	"github.com/google/uuid"
	"github.com/splittab/backend/internal/models"
	"gorm.io/gorm"
)

// eligibleBills scopes a query to the bills that count for userID: bills in
// groups the user belongs to, created no earlier than the user joined — plus
// the user's own bills regardless of join-time bookkeeping order. A member
// who joined after a bill was created must neither see it nor have it counted
// in their balance. Group-wide (auditor) listings never go through this scope.
func eligibleBills(db *gorm.DB, userID uuid.UUID) *gorm.DB {
	return db.Model(&models.Bill{}).
		Joins("JOIN memberships ON memberships.group_id = bills.group_id AND memberships.user_id = ?", userID).
		Where("memberships.joined_at <= bills.created_at OR bills.created_by_id = ?", userID)
}

// billEligibleFor applies the same rule to an already-loaded bill.
func billEligibleFor(membership *models.Membership, bill *models.Bill, userID uuid.UUID) bool {
	if bill.CreatedByID == userID {
		return true
	}
	if membership == nil {
		return false
	}
	return !membership.JoinedAt.After(bill.CreatedAt)
}
