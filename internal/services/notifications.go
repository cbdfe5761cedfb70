package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/splittab/backend/internal/models"
	"gorm.io/gorm"
)

type NotificationService struct {
	DB *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db}
}

// notify writes one notification row per recipient inside tx, so the rows
// commit or roll back together with the transition that caused them. The
// actor never receives a notification about their own action.
func (s *NotificationService) notify(tx *gorm.DB, actorID uuid.UUID, typ models.NotificationType, billID uuid.UUID, splitID *uuid.UUID, message string, recipients []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(recipients))
	rows := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient == actorID || seen[recipient] {
			continue
		}
		seen[recipient] = true
		rows = append(rows, models.Notification{
			UserID:  recipient,
			ActorID: actorID,
			Type:    typ,
			BillID:  billID,
			SplitID: splitID,
			Message: message,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return tx.Create(&rows).Error
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, page, limit int) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := s.DB.WithContext(ctx).
		Preload("Actor").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	result := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &Error{ErrorKindNotFound, "notification not found"}
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}
