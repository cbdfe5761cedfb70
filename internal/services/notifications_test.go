package services

import (
	"context"
	"testing"

	"github.com/splittab/backend/internal/models"
)

func TestNotificationReadFlow(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	admin := createTestUser(t, env.DB, uniqueEmail("admin"))
	alice := createTestUser(t, env.DB, uniqueEmail("alice"))
	bob := createTestUser(t, env.DB, uniqueEmail("bob"))
	group := createTestGroup(t, env, admin, alice, bob)

	// Approval notifies every split holder except the acting admin.
	bill := createApprovedEqualBill(t, env, admin, group, alice, "300.00", admin, alice, bob)

	notifications, total, err := env.Notifications.List(ctx, bob.ID, 1, 20)
	if err != nil {
		t.Fatalf("failed listing notifications: %v", err)
	}
	if total != 1 || len(notifications) != 1 {
		t.Fatalf("expected exactly 1 notification for bob, got %d", total)
	}
	if notifications[0].Type != models.NotificationBillApproved {
		t.Errorf("expected bill_approved, got %s", notifications[0].Type)
	}
	if notifications[0].BillID != bill.ID {
		t.Errorf("notification references wrong bill")
	}
	if notifications[0].Actor.ID != admin.ID {
		t.Errorf("expected actor preloaded as admin")
	}

	t.Run("actor receives nothing about their own action", func(t *testing.T) {
		var count int64
		err := env.DB.Model(&models.Notification{}).
			Where("user_id = ? AND type = ?", admin.ID, models.NotificationBillApproved).
			Count(&count).Error
		if err != nil {
			t.Fatalf("failed counting: %v", err)
		}
		if count != 0 {
			t.Errorf("admin should not be notified of their own approval, got %d", count)
		}
	})

	t.Run("mark one read", func(t *testing.T) {
		if err := env.Notifications.MarkRead(ctx, bob.ID, notifications[0].ID); err != nil {
			t.Fatalf("failed marking read: %v", err)
		}
		count, err := env.Notifications.UnreadCount(ctx, bob.ID)
		if err != nil {
			t.Fatalf("failed counting unread: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 unread, got %d", count)
		}
	})

	t.Run("cannot mark someone else's notification", func(t *testing.T) {
		aliceNotifications, _, err := env.Notifications.List(ctx, alice.ID, 1, 20)
		if err != nil || len(aliceNotifications) == 0 {
			t.Fatalf("failed listing alice's notifications: %v", err)
		}
		err = env.Notifications.MarkRead(ctx, bob.ID, aliceNotifications[0].ID)
		if err == nil || KindOf(err) != ErrorKindNotFound {
			t.Errorf("expected not_found error, got %v", err)
		}
	})

	t.Run("mark all read", func(t *testing.T) {
		if err := env.Notifications.MarkAllRead(ctx, alice.ID); err != nil {
			t.Fatalf("failed marking all read: %v", err)
		}
		count, err := env.Notifications.UnreadCount(ctx, alice.ID)
		if err != nil {
			t.Fatalf("failed counting unread: %v", err)
		}
		if count != 0 {
			t.Errorf("expected 0 unread after mark-all, got %d", count)
		}
	})
}
