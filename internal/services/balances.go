package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splittab/backend/internal/models"
	"gorm.io/gorm"
)

// CounterpartyBalance is a single edge of the user's balance graph: how much
// one other user owes them (or they owe) across all eligible bills.
type CounterpartyBalance struct {
	UserID uuid.UUID       `json:"userID"`
	User   *models.User    `json:"user,omitempty"`
	Amount decimal.Decimal `json:"amount"`
}

// BalanceSummary is the caller's aggregate position. Owed lists people who
// owe the caller; Owing lists people the caller owes. Confirmed splits are
// settled money and excluded from both sides.
type BalanceSummary struct {
	Owed     []CounterpartyBalance `json:"owed"`
	Owing    []CounterpartyBalance `json:"owing"`
	NetOwed  decimal.Decimal       `json:"netOwed"`
	NetOwing decimal.Decimal       `json:"netOwing"`
}

// BalanceService aggregates outstanding splits into per-counterparty
// balances. Only eligible bills count: a member never owes on a bill created
// before they joined, and never sees others' debts on one either.
type BalanceService struct {
	DB *gorm.DB
}

func NewBalanceService(db *gorm.DB) *BalanceService {
	return &BalanceService{DB: db}
}

// ComputeBalances walks every outstanding split on the user's eligible
// approved and settled bills. A split the user holds is money they owe the
// bill's creator; a split someone else holds on a bill the user created is
// money owed to the user. Draft, pending and cancelled bills carry
// undetermined or void amounts and contribute nothing, and a creator's own
// split on their own bill nets out to zero.
func (s *BalanceService) ComputeBalances(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID) (*BalanceSummary, error) {
	query := eligibleBills(s.DB.WithContext(ctx), userID).
		Preload("Splits.User").
		Where("bills.status IN ?", []models.BillStatus{models.BillStatusApproved, models.BillStatusSettled})
	if groupID != nil {
		query = query.Where("bills.group_id = ?", *groupID)
	}

	var bills []models.Bill
	if err := query.Find(&bills).Error; err != nil {
		return nil, err
	}

	owedBy := make(map[uuid.UUID]decimal.Decimal)
	owingTo := make(map[uuid.UUID]decimal.Decimal)
	users := make(map[uuid.UUID]*models.User)

	for i := range bills {
		bill := &bills[i]
		for j := range bill.Splits {
			split := &bill.Splits[j]
			if split.PaymentStatus == models.PaymentStatusConfirmed ||
				split.PaymentStatus == models.PaymentStatusCancelled {
				continue
			}
			if split.UserID == bill.CreatedByID {
				continue
			}

			switch {
			case bill.CreatedByID == userID:
				owedBy[split.UserID] = owedByAmount(owedBy, split.UserID).Add(split.Amount)
				users[split.UserID] = &split.User
			case split.UserID == userID:
				owingTo[bill.CreatedByID] = owedByAmount(owingTo, bill.CreatedByID).Add(split.Amount)
			}
		}
	}

	summary := &BalanceSummary{
		Owed:     make([]CounterpartyBalance, 0, len(owedBy)),
		Owing:    make([]CounterpartyBalance, 0, len(owingTo)),
		NetOwed:  decimal.Zero,
		NetOwing: decimal.Zero,
	}
	for counterparty, amount := range owedBy {
		summary.Owed = append(summary.Owed, CounterpartyBalance{
			UserID: counterparty,
			User:   users[counterparty],
			Amount: amount,
		})
		summary.NetOwed = summary.NetOwed.Add(amount)
	}
	for counterparty, amount := range owingTo {
		user, err := s.lookupUser(ctx, counterparty)
		if err != nil {
			return nil, err
		}
		summary.Owing = append(summary.Owing, CounterpartyBalance{
			UserID: counterparty,
			User:   user,
			Amount: amount,
		})
		summary.NetOwing = summary.NetOwing.Add(amount)
	}
	return summary, nil
}

func owedByAmount(m map[uuid.UUID]decimal.Decimal, key uuid.UUID) decimal.Decimal {
	if amount, ok := m[key]; ok {
		return amount
	}
	return decimal.Zero
}

func (s *BalanceService) lookupUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
