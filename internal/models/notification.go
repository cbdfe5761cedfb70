package models

import "github.com/google/uuid"

type NotificationType string

const (
	NotificationBillSubmitted  NotificationType = "bill_submitted"
	NotificationBillApproved   NotificationType = "bill_approved"
	NotificationBillCancelled  NotificationType = "bill_cancelled"
	NotificationProofSubmitted NotificationType = "proof_submitted"
	NotificationSplitConfirmed NotificationType = "split_confirmed"
	NotificationSplitRejected  NotificationType = "split_rejected"
	NotificationBillSettled    NotificationType = "bill_settled"
)

type Notification struct {
	BaseModel
	UserID  uuid.UUID        `json:"userID" gorm:"type:uuid;not null;index"`
	ActorID uuid.UUID        `json:"actorID" gorm:"type:uuid;not null"`
	Type    NotificationType `json:"type" gorm:"type:varchar(30);not null"`
	BillID  uuid.UUID        `json:"billID" gorm:"type:uuid;not null;index"`
	SplitID *uuid.UUID       `json:"splitID,omitempty" gorm:"type:uuid"`
	Message string           `json:"message" gorm:"type:text;not null"`
	IsRead  bool             `json:"isRead" gorm:"not null;default:false;index"`

	Actor User `json:"actor,omitempty" gorm:"foreignKey:ActorID;references:ID"`
}

func (Notification) TableName() string {
	return "notifications"
}
