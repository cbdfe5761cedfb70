package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splittab/backend/internal/models"
	"gorm.io/gorm"
)

type testEnv struct {
	DB            *gorm.DB
	Memberships   *MembershipService
	Notifications *NotificationService
	Bills         *BillService
	Splits        *SplitService
	Balances      *BalanceService
}

func setupServiceTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Membership{},
		&models.Bill{},
		&models.BillItem{},
		&models.ItemAssignee{},
		&models.BillParticipant{},
		&models.Split{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	memberships := NewMembershipService(db)
	notifications := NewNotificationService(db)
	return &testEnv{
		DB:            db,
		Memberships:   memberships,
		Notifications: notifications,
		Bills:         NewBillService(db, memberships, notifications, "INR"),
		Splits:        NewSplitService(db, memberships, notifications),
		Balances:      NewBalanceService(db),
	}
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user %s: %v", email, err)
	}
	return user
}

// createTestGroup creates a group with admin plus the given extra members,
// all joined through the invite code path.
func createTestGroup(t *testing.T, env *testEnv, admin *models.User, members ...*models.User) *models.Group {
	t.Helper()
	group, err := env.Memberships.CreateGroup(context.Background(), admin.ID, "Trip Group", nil)
	if err != nil {
		t.Fatalf("failed creating group: %v", err)
	}
	for _, member := range members {
		if _, err := env.Memberships.JoinGroup(context.Background(), member.ID, group.InviteCode); err != nil {
			t.Fatalf("failed joining group as %s: %v", member.Email, err)
		}
	}
	return group
}

// createApprovedEqualBill builds the canonical three-way dinner bill: the
// creator adds a single item, submits, and an admin approves, yielding one
// split per participant.
func createApprovedEqualBill(t *testing.T, env *testEnv, admin *models.User, group *models.Group, creator *models.User, total string, participants ...*models.User) *models.Bill {
	t.Helper()
	ctx := context.Background()

	participantIDs := make([]uuid.UUID, len(participants))
	for i, p := range participants {
		participantIDs[i] = p.ID
	}

	bill, err := env.Bills.CreateBill(ctx, creator.ID, CreateBillInput{
		GroupID:        group.ID,
		Title:          "Dinner",
		SplitMethod:    models.SplitMethodEqual,
		ParticipantIDs: participantIDs,
	})
	if err != nil {
		t.Fatalf("failed creating bill: %v", err)
	}

	_, err = env.Bills.AddItem(ctx, creator.ID, bill.ID, AddItemInput{
		Name:     "Dinner",
		Quantity: 1,
		Rate:     decimal.RequireFromString(total),
	})
	if err != nil {
		t.Fatalf("failed adding item: %v", err)
	}
	if _, err := env.Bills.SubmitBill(ctx, creator.ID, bill.ID); err != nil {
		t.Fatalf("failed submitting bill: %v", err)
	}
	approved, err := env.Bills.ApproveBill(ctx, admin.ID, bill.ID, nil)
	if err != nil {
		t.Fatalf("failed approving bill: %v", err)
	}
	return approved
}

func splitFor(t *testing.T, db *gorm.DB, billID, userID uuid.UUID) *models.Split {
	t.Helper()
	var split models.Split
	err := db.First(&split, "bill_id = ? AND user_id = ?", billID, userID).Error
	if err != nil {
		t.Fatalf("failed loading split for user %s: %v", userID, err)
	}
	return &split
}

func reloadBill(t *testing.T, db *gorm.DB, billID uuid.UUID) *models.Bill {
	t.Helper()
	var bill models.Bill
	if err := db.First(&bill, "id = ?", billID).Error; err != nil {
		t.Fatalf("failed reloading bill: %v", err)
	}
	return &bill
}

func assertDecimal(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected amount %s, got %s", want, got)
	}
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@test.com", prefix, uuid.NewString()[:8])
}
