package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/splittab/backend/internal/models"
)

func TestCreateGroup(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	admin := createTestUser(t, env.DB, uniqueEmail("admin"))

	group, err := env.Memberships.CreateGroup(ctx, admin.ID, "Flatmates", nil)
	if err != nil {
		t.Fatalf("failed creating group: %v", err)
	}
	if len(group.InviteCode) != 8 {
		t.Errorf("expected 8-character invite code, got %q", group.InviteCode)
	}

	membership, err := env.Memberships.Membership(ctx, group.ID, admin.ID)
	if err != nil {
		t.Fatalf("creator has no membership: %v", err)
	}
	if membership.Role != models.MembershipRoleAdmin {
		t.Errorf("expected creator to be admin, got %s", membership.Role)
	}
	if membership.JoinedAt.Sub(group.CreatedAt).Abs() > time.Second {
		t.Errorf("creator joined_at %v should match group created_at %v", membership.JoinedAt, group.CreatedAt)
	}

	t.Run("empty name rejected", func(t *testing.T) {
		if _, err := env.Memberships.CreateGroup(ctx, admin.ID, "", nil); err == nil {
			t.Error("expected validation error for empty name")
		}
	})
}

func TestJoinGroup(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	admin := createTestUser(t, env.DB, uniqueEmail("admin"))
	member := createTestUser(t, env.DB, uniqueEmail("member"))
	group := createTestGroup(t, env, admin)

	membership, err := env.Memberships.JoinGroup(ctx, member.ID, group.InviteCode)
	if err != nil {
		t.Fatalf("failed joining group: %v", err)
	}
	if membership.Role != models.MembershipRoleMember {
		t.Errorf("expected member role, got %s", membership.Role)
	}

	t.Run("duplicate join rejected", func(t *testing.T) {
		_, err := env.Memberships.JoinGroup(ctx, member.ID, group.InviteCode)
		if !errors.Is(err, ErrDuplicateMember) {
			t.Errorf("expected ErrDuplicateMember, got %v", err)
		}
	})

	t.Run("unknown invite code", func(t *testing.T) {
		_, err := env.Memberships.JoinGroup(ctx, member.ID, "NOPE1234")
		if !errors.Is(err, ErrInvalidInviteCode) {
			t.Errorf("expected ErrInvalidInviteCode, got %v", err)
		}
	})
}

func TestAddMember(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	admin := createTestUser(t, env.DB, uniqueEmail("admin"))
	member := createTestUser(t, env.DB, uniqueEmail("member"))
	outsider := createTestUser(t, env.DB, uniqueEmail("outsider"))
	group := createTestGroup(t, env, admin, member)

	t.Run("non-admin denied", func(t *testing.T) {
		_, err := env.Memberships.AddMember(ctx, member.ID, group.ID, outsider.ID, models.MembershipRoleMember)
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("admin adds member", func(t *testing.T) {
		membership, err := env.Memberships.AddMember(ctx, admin.ID, group.ID, outsider.ID, models.MembershipRoleMember)
		if err != nil {
			t.Fatalf("failed adding member: %v", err)
		}
		if membership.UserID != outsider.ID {
			t.Errorf("membership recorded for wrong user")
		}
	})

	t.Run("unknown user rejected", func(t *testing.T) {
		ghost := createTestUser(t, env.DB, uniqueEmail("ghost"))
		if err := env.DB.Delete(&models.User{}, "id = ?", ghost.ID).Error; err != nil {
			t.Fatalf("failed deleting user: %v", err)
		}
		_, err := env.Memberships.AddMember(ctx, admin.ID, group.ID, ghost.ID, models.MembershipRoleMember)
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestListGroupsAndGetGroup(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	admin := createTestUser(t, env.DB, uniqueEmail("admin"))
	member := createTestUser(t, env.DB, uniqueEmail("member"))
	outsider := createTestUser(t, env.DB, uniqueEmail("outsider"))
	group := createTestGroup(t, env, admin, member)

	groups, err := env.Memberships.ListGroups(ctx, member.ID)
	if err != nil {
		t.Fatalf("failed listing groups: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != group.ID {
		t.Errorf("expected exactly the joined group, got %d groups", len(groups))
	}

	t.Run("outsider cannot fetch group", func(t *testing.T) {
		_, err := env.Memberships.GetGroup(ctx, outsider.ID, group.ID)
		if !errors.Is(err, ErrNotGroupMember) {
			t.Errorf("expected ErrNotGroupMember, got %v", err)
		}
	})

	t.Run("member fetches group with memberships", func(t *testing.T) {
		fetched, err := env.Memberships.GetGroup(ctx, member.ID, group.ID)
		if err != nil {
			t.Fatalf("failed fetching group: %v", err)
		}
		if len(fetched.Memberships) != 2 {
			t.Errorf("expected 2 memberships, got %d", len(fetched.Memberships))
		}
	})
}

func TestJoinedAt(t *testing.T) {
	env := setupServiceTestEnv(t)
	ctx := context.Background()
	admin := createTestUser(t, env.DB, uniqueEmail("admin"))
	member := createTestUser(t, env.DB, uniqueEmail("member"))
	outsider := createTestUser(t, env.DB, uniqueEmail("outsider"))
	group := createTestGroup(t, env, admin, member)

	joined, err := env.Memberships.JoinedAt(ctx, group.ID, member.ID)
	if err != nil {
		t.Fatalf("failed fetching joined-at: %v", err)
	}
	if joined.IsZero() {
		t.Error("expected a recorded join time, got zero")
	}

	t.Run("creator joined at group creation", func(t *testing.T) {
		joined, err := env.Memberships.JoinedAt(ctx, group.ID, admin.ID)
		if err != nil {
			t.Fatalf("failed fetching joined-at: %v", err)
		}
		if joined.Sub(group.CreatedAt).Abs() > time.Second {
			t.Errorf("expected creator join time %v to match group creation %v", joined, group.CreatedAt)
		}
	})

	t.Run("non-member has no join time", func(t *testing.T) {
		if _, err := env.Memberships.JoinedAt(ctx, group.ID, outsider.ID); !errors.Is(err, ErrNotAMember) {
			t.Errorf("expected ErrNotAMember, got %v", err)
		}
	})
}
