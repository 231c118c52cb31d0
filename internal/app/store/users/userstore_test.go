// internal/app/store/users/userstore_test.go
package userstore_test

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/app/system/indexes"
	"github.com/lgsf/teamhub/internal/app/system/roles"
	"github.com/lgsf/teamhub/internal/domain/models"
	"github.com/lgsf/teamhub/internal/testutil"
)

func TestCreate_DefaultsAndNormalization(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{
		AuthSubject: "google:create-defaults",
		Email:       "  Mixed.Case@Example.COM ",
		FullName:    "  Pat Example  ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if u.Email != "mixed.case@example.com" {
		t.Errorf("email: got %q", u.Email)
	}
	if u.FullName != "Pat Example" {
		t.Errorf("full name: got %q", u.FullName)
	}
	if u.Role != roles.User || u.Status != models.StatusActive {
		t.Errorf("defaults: role=%q status=%q", u.Role, u.Status)
	}
	if u.Preferences.Notifications.Enabled == nil || !*u.Preferences.Notifications.Enabled {
		t.Error("preference bundle not populated with defaults")
	}
	email := u.Preferences.Notifications.Email
	if email == nil || email.Security == nil || !*email.Security {
		t.Error("email.security must default to true")
	}
}

func TestCreate_RejectsBadRoleAndStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{AuthSubject: "s1", Email: "a@b.c", Role: "emperor"}); err == nil {
		t.Error("expected error for invalid role")
	}
	if _, err := store.Create(ctx, models.User{AuthSubject: "s2", Email: "a@b.c", Status: "frozen"}); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestCreate_DuplicateSubject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	if _, err := store.Create(ctx, models.User{AuthSubject: "google:dup", Email: "first@test.example"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := store.Create(ctx, models.User{AuthSubject: "google:dup", Email: "second@test.example"})
	if !errors.Is(err, userstore.ErrDuplicateSubject) {
		t.Errorf("got %v, want ErrDuplicateSubject", err)
	}
}

func TestGetByIDs_PreservesInputOrderDropsMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := fx.CreateUser(ctx, "A", roles.User)
	b := fx.CreateUser(ctx, "B", roles.User)
	missing := primitive.NewObjectID()

	got, err := store.GetByIDs(ctx, []primitive.ObjectID{b.ID, missing, a.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d users, want 2", len(got))
	}
	if got[0].ID != b.ID || got[1].ID != a.ID {
		t.Error("input order not preserved")
	}
}

func TestListActiveByRoles_SkipsInactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fx.CreateUser(ctx, "Admin", roles.Admin)
	suspended := fx.CreateUser(ctx, "Suspended Admin", roles.Admin)
	fx.SetUserStatus(ctx, suspended.ID, models.StatusSuspended)
	fx.CreateUser(ctx, "Plain", roles.User)

	got, err := store.ListActiveByRoles(ctx, []string{roles.Admin, roles.SuperAdmin})
	if err != nil {
		t.Fatalf("ListActiveByRoles: %v", err)
	}
	found := map[primitive.ObjectID]bool{}
	for _, u := range got {
		found[u.ID] = true
	}
	if !found[admin.ID] {
		t.Error("active admin missing")
	}
	if found[suspended.ID] {
		t.Error("suspended admin included")
	}
}

func TestClaimSubject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, models.User{AuthSubject: "pending:boot@test.example", Email: "boot@test.example"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.ClaimSubject(ctx, u.ID, "google:claimed"); err != nil {
		t.Fatalf("ClaimSubject: %v", err)
	}
	got, err := store.GetByAuthSubject(ctx, "google:claimed")
	if err != nil {
		t.Fatalf("GetByAuthSubject: %v", err)
	}
	if got.ID != u.ID {
		t.Error("claimed subject resolves to a different user")
	}
}

func TestUpdateNotificationPreferences_PinsSecurity(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "U", roles.User)

	merged, err := store.UpdateNotificationPreferences(ctx, u.ID, models.NotificationPreferences{
		Email: &models.EmailPrefs{
			Security:  models.BoolPtr(false), // must be ignored
			Marketing: models.BoolPtr(true),
		},
	})
	if err != nil {
		t.Fatalf("UpdateNotificationPreferences: %v", err)
	}
	if merged.Email == nil || merged.Email.Security == nil || !*merged.Email.Security {
		t.Error("email.security was unset by the update")
	}
	if merged.Email.Marketing == nil || !*merged.Email.Marketing {
		t.Error("email.marketing not merged")
	}

	got, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	persisted := got.Preferences.Notifications.Email
	if persisted == nil || persisted.Security == nil || !*persisted.Security {
		t.Error("persisted email.security not pinned")
	}
}
