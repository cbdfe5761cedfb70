package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/splittab/backend/internal/models"
	"github.com/splittab/backend/internal/services"
)

type billFixture struct {
	admin, alice, bob                *models.User
	adminToken, aliceToken, bobToken string
	group                            *models.Group
	bill                             *models.Bill
}

var fixtureCounter int

func fixtureEmail(prefix string) string {
	fixtureCounter++
	return fmt.Sprintf("%s-%d@test.com", prefix, fixtureCounter)
}

// setupApprovedBillFixture prepares a three-member group with a 300.00 bill
// split equally, already approved, so tests can focus on the behavior under
// test instead of repeating the setup over HTTP.
func setupApprovedBillFixture(t *testing.T, env *testEnv) *billFixture {
	t.Helper()
	ctx := context.Background()

	admin, adminToken := createTestUser(t, env.db, fixtureEmail("admin"), "password123")
	alice, aliceToken := createTestUser(t, env.db, fixtureEmail("alice"), "password123")
	bob, bobToken := createTestUser(t, env.db, fixtureEmail("bob"), "password123")

	group, err := env.memberships.CreateGroup(ctx, admin.ID, "Dinner Club", nil)
	if err != nil {
		t.Fatalf("failed creating group: %v", err)
	}
	for _, member := range []*models.User{alice, bob} {
		if _, err := env.memberships.JoinGroup(ctx, member.ID, group.InviteCode); err != nil {
			t.Fatalf("failed joining group: %v", err)
		}
	}

	bill, err := env.bills.CreateBill(ctx, alice.ID, services.CreateBillInput{
		GroupID:        group.ID,
		Title:          "Dinner",
		SplitMethod:    models.SplitMethodEqual,
		ParticipantIDs: []uuid.UUID{admin.ID, alice.ID, bob.ID},
	})
	if err != nil {
		t.Fatalf("failed creating bill: %v", err)
	}
	if _, err := env.bills.AddItem(ctx, alice.ID, bill.ID, services.AddItemInput{
		Name:     "Dinner",
		Quantity: 1,
		Rate:     decimal.RequireFromString("300.00"),
	}); err != nil {
		t.Fatalf("failed adding item: %v", err)
	}
	if _, err := env.bills.SubmitBill(ctx, alice.ID, bill.ID); err != nil {
		t.Fatalf("failed submitting bill: %v", err)
	}
	bill, err = env.bills.ApproveBill(ctx, admin.ID, bill.ID, nil)
	if err != nil {
		t.Fatalf("failed approving bill: %v", err)
	}

	return &billFixture{
		admin: admin, alice: alice, bob: bob,
		adminToken: adminToken, aliceToken: aliceToken, bobToken: bobToken,
		group: group, bill: bill,
	}
}

func fixtureSplit(t *testing.T, env *testEnv, billID, userID uuid.UUID) *models.Split {
	t.Helper()
	var split models.Split
	if err := env.db.First(&split, "bill_id = ? AND user_id = ?", billID, userID).Error; err != nil {
		t.Fatalf("failed loading split: %v", err)
	}
	return &split
}
