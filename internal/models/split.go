package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSubmitted PaymentStatus = "submitted"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

// Split is one participant's share of a bill. It references its user by id
// only, so historical splits survive membership churn.
type Split struct {
	BaseModel
	BillID          uuid.UUID       `json:"billID" gorm:"type:uuid;not null;index;uniqueIndex:idx_bill_split_user"`
	UserID          uuid.UUID       `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_bill_split_user"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Paid            bool            `json:"paid" gorm:"not null;default:false"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	ApprovalStatus  ApprovalStatus  `json:"approvalStatus" gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" gorm:"type:varchar(20);not null;default:'pending';index"`
	UpiReference    *string         `json:"upiReference,omitempty" gorm:"type:varchar(100)"`
	ProofImageURL   *string         `json:"proofImageURL,omitempty" gorm:"type:text"`
	RejectionReason *string         `json:"rejectionReason,omitempty" gorm:"type:text"`

	Bill Bill `json:"bill,omitempty" gorm:"foreignKey:BillID;references:ID"`
	User User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (Split) TableName() string {
	return "splits"
}
