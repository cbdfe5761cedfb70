package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BillStatus string

const (
	BillStatusDraft     BillStatus = "draft"
	BillStatusPending   BillStatus = "pending"
	BillStatusApproved  BillStatus = "approved"
	BillStatusSettled   BillStatus = "settled"
	BillStatusCancelled BillStatus = "cancelled"
)

type SplitMethod string

const (
	SplitMethodEqual  SplitMethod = "equal"
	SplitMethodByItem SplitMethod = "by_item"
	SplitMethodCustom SplitMethod = "custom"
)

type Bill struct {
	BaseModel
	GroupID     uuid.UUID       `json:"groupID" gorm:"type:uuid;not null;index"`
	CreatedByID uuid.UUID       `json:"createdByID" gorm:"type:uuid;not null;index"`
	Title       string          `json:"title" gorm:"type:varchar(200);not null"`
	Description *string         `json:"description,omitempty" gorm:"type:text"`
	Currency    string          `json:"currency" gorm:"type:varchar(3);not null;default:'INR'"`
	TaxAmount   decimal.Decimal `json:"taxAmount" gorm:"type:numeric(12,2);not null"`
	TipAmount   decimal.Decimal `json:"tipAmount" gorm:"type:numeric(12,2);not null"`
	TotalAmount decimal.Decimal `json:"totalAmount" gorm:"type:numeric(12,2);not null"`
	SplitMethod SplitMethod     `json:"splitMethod" gorm:"type:varchar(20);not null;default:'equal'"`
	Status      BillStatus      `json:"status" gorm:"type:varchar(20);not null;default:'draft';index"`
	ApprovedAt  *time.Time      `json:"approvedAt,omitempty"`
	SettledAt   *time.Time      `json:"settledAt,omitempty"`

	Group     Group      `json:"group,omitempty" gorm:"foreignKey:GroupID;references:ID"`
	CreatedBy User       `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID;references:ID"`
	Items     []BillItem `json:"items,omitempty" gorm:"foreignKey:BillID"`
	Splits    []Split    `json:"splits,omitempty" gorm:"foreignKey:BillID"`

	// Participants holds the explicit participant set recorded at creation.
	// For by_item bills the effective participants are the union of item
	// assignees instead.
	Participants []BillParticipant `json:"participants,omitempty" gorm:"foreignKey:BillID"`
}

func (Bill) TableName() string {
	return "bills"
}

// IsEditable reports whether items may still be mutated.
func (b *Bill) IsEditable() bool {
	return b.Status == BillStatusDraft
}

type BillItem struct {
	BaseModel
	BillID   uuid.UUID       `json:"billID" gorm:"type:uuid;not null;index"`
	Name     string          `json:"name" gorm:"type:varchar(200);not null"`
	Quantity int             `json:"quantity" gorm:"not null;default:1"`
	Rate     decimal.Decimal `json:"rate" gorm:"type:numeric(12,2);not null"`
	Price    decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Category *string         `json:"category,omitempty" gorm:"type:varchar(50)"`

	Assignees []ItemAssignee `json:"assignees,omitempty" gorm:"foreignKey:BillItemID"`
}

func (BillItem) TableName() string {
	return "bill_items"
}

type ItemAssignee struct {
	BaseModel
	BillItemID uuid.UUID `json:"billItemID" gorm:"type:uuid;not null;index;uniqueIndex:idx_item_user"`
	UserID     uuid.UUID `json:"userID" gorm:"type:uuid;not null;uniqueIndex:idx_item_user"`
}

func (ItemAssignee) TableName() string {
	return "item_assignees"
}

type BillParticipant struct {
	BaseModel
	BillID uuid.UUID `json:"billID" gorm:"type:uuid;not null;index;uniqueIndex:idx_bill_user"`
	UserID uuid.UUID `json:"userID" gorm:"type:uuid;not null;uniqueIndex:idx_bill_user"`
}

func (BillParticipant) TableName() string {
	return "bill_participants"
}
