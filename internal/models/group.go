package models

import "github.com/google/uuid"

type Group struct {
	BaseModel
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	CreatedByID uuid.UUID `json:"createdByID" gorm:"type:uuid;not null;index"`
	InviteCode  string    `json:"inviteCode" gorm:"type:varchar(12);uniqueIndex;not null"`

	CreatedBy   User         `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID;references:ID"`
	Memberships []Membership `json:"memberships,omitempty" gorm:"foreignKey:GroupID"`
}

func (Group) TableName() string {
	return "groups"
}
