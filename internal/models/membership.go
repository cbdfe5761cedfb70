package models

import (
	"time"

	"github.com/google/uuid"
)

type MembershipRole string

const (
	MembershipRoleAdmin  MembershipRole = "admin"
	MembershipRoleMember MembershipRole = "member"
)

// Membership rows are append-only: nothing in the engine deletes them, so
// JoinedAt stays available for bills that settled long after a member left
// the day-to-day picture.
type Membership struct {
	BaseModel
	GroupID  uuid.UUID      `json:"groupID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_user"`
	UserID   uuid.UUID      `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_user"`
	Role     MembershipRole `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	JoinedAt time.Time      `json:"joinedAt" gorm:"not null"`

	User  User  `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
	Group Group `json:"group,omitempty" gorm:"foreignKey:GroupID;references:ID"`
}

func (Membership) TableName() string {
	return "memberships"
}
