package services

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/splittab/backend/internal/models"
	"gorm.io/gorm"
)

// MembershipService is the membership registry: who belongs to which group,
// with which role, since when. Memberships are append-only; there is no
// removal operation, so joined-at timestamps stay intact for bills that were
// settled long ago.
type MembershipService struct {
	DB *gorm.DB
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{DB: db}
}

// inviteCodeCharset avoids ambiguous characters (0/O, 1/I/L).
const inviteCodeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func generateInviteCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = inviteCodeCharset[int(b)%len(inviteCodeCharset)]
	}
	return string(buf), nil
}

// CreateGroup creates the group, its invite code, and the creator's admin
// membership in one transaction. The creator joins at the group's creation
// instant, so every bill in the group is eligible for them by the join-time
// rule as well as by the creator override.
func (s *MembershipService) CreateGroup(ctx context.Context, actorID uuid.UUID, name string, description *string) (*models.Group, error) {
	if name == "" {
		return nil, validationError("group name is required")
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:        name,
		Description: description,
		CreatedByID: actorID,
		InviteCode:  code,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		membership := models.Membership{
			GroupID:  group.ID,
			UserID:   actorID,
			Role:     models.MembershipRoleAdmin,
			JoinedAt: group.CreatedAt,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// JoinGroup redeems an invite code and creates a member-role membership.
func (s *MembershipService) JoinGroup(ctx context.Context, actorID uuid.UUID, inviteCode string) (*models.Membership, error) {
	if inviteCode == "" {
		return nil, validationError("invite code is required")
	}

	var group models.Group
	if err := s.DB.WithContext(ctx).First(&group, "invite_code = ?", inviteCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, err
	}

	return s.addMember(ctx, group.ID, actorID, models.MembershipRoleMember)
}

// AddMember lets a group admin add another registered user directly.
func (s *MembershipService) AddMember(ctx context.Context, actorID, groupID, userID uuid.UUID, role models.MembershipRole) (*models.Membership, error) {
	if role != models.MembershipRoleAdmin && role != models.MembershipRoleMember {
		return nil, validationError("invalid role")
	}

	actor, err := s.Membership(ctx, groupID, actorID)
	if err != nil {
		if errors.Is(err, ErrNotAMember) {
			return nil, ErrNotGroupMember
		}
		return nil, err
	}
	if actor.Role != models.MembershipRoleAdmin {
		return nil, ErrUnauthorized
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.addMember(ctx, groupID, userID, role)
}

func (s *MembershipService) addMember(ctx context.Context, groupID, userID uuid.UUID, role models.MembershipRole) (*models.Membership, error) {
	var existing models.Membership
	err := s.DB.WithContext(ctx).First(&existing, "group_id = ? AND user_id = ?", groupID, userID).Error
	if err == nil {
		return nil, ErrDuplicateMember
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	membership := &models.Membership{
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// Membership returns the membership row, or ErrNotAMember.
func (s *MembershipService) Membership(ctx context.Context, groupID, userID uuid.UUID) (*models.Membership, error) {
	var membership models.Membership
	err := s.DB.WithContext(ctx).First(&membership, "group_id = ? AND user_id = ?", groupID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAMember
		}
		return nil, err
	}
	return &membership, nil
}

func (s *MembershipService) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	_, err := s.Membership(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, ErrNotAMember) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// IsAdmin reports whether userID holds the admin role in the group.
func (s *MembershipService) IsAdmin(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	membership, err := s.Membership(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, ErrNotAMember) {
			return false, nil
		}
		return false, err
	}
	return membership.Role == models.MembershipRoleAdmin, nil
}

func (s *MembershipService) JoinedAt(ctx context.Context, groupID, userID uuid.UUID) (time.Time, error) {
	membership, err := s.Membership(ctx, groupID, userID)
	if err != nil {
		return time.Time{}, err
	}
	return membership.JoinedAt, nil
}

func (s *MembershipService) ListGroups(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	var groups []models.Group
	err := s.DB.WithContext(ctx).
		Model(&models.Group{}).
		Joins("JOIN memberships ON memberships.group_id = groups.id").
		Where("memberships.user_id = ?", userID).
		Order("groups.created_at DESC").
		Find(&groups).Error
	return groups, err
}

// GetGroup loads a group with its members; member-only.
func (s *MembershipService) GetGroup(ctx context.Context, actorID, groupID uuid.UUID) (*models.Group, error) {
	if _, err := s.Membership(ctx, groupID, actorID); err != nil {
		if errors.Is(err, ErrNotAMember) {
			return nil, ErrNotGroupMember
		}
		return nil, err
	}

	var group models.Group
	err := s.DB.WithContext(ctx).Preload("Memberships.User").First(&group, "id = ?", groupID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}
