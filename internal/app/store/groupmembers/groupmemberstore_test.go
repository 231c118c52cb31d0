// internal/app/store/groupmembers/groupmemberstore_test.go
package groupmemberstore_test

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	groupmemberstore "github.com/lgsf/teamhub/internal/app/store/groupmembers"
	"github.com/lgsf/teamhub/internal/app/system/roles"
	"github.com/lgsf/teamhub/internal/domain/models"
	"github.com/lgsf/teamhub/internal/testutil"
)

func TestAdd_CreatesThenReactivates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupmemberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", roles.User)
	u := fx.CreateUser(ctx, "Member", roles.User)
	g := fx.CreateGroup(ctx, "g", models.GroupStandalone, models.VisibilityPublic, owner.ID)

	res, err := store.Add(ctx, g.ID, u.ID, models.GroupRoleMember)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !res.Created || res.Reactivated {
		t.Errorf("first add: got %+v, want Created", res)
	}

	// Adding again while active is neither a create nor a reactivation.
	res, err = store.Add(ctx, g.ID, u.ID, models.GroupRoleMember)
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if res.Created || res.Reactivated {
		t.Errorf("duplicate add: got %+v, want no-op", res)
	}

	suspended, err := store.Remove(ctx, g.ID, u.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !suspended {
		t.Fatal("Remove did not suspend an active membership")
	}

	// The document survives suspension.
	m, err := store.Get(ctx, g.ID, u.ID)
	if err != nil {
		t.Fatalf("Get after remove: %v", err)
	}
	if m.Status != models.MemberSuspended {
		t.Errorf("status after remove: got %q, want suspended", m.Status)
	}

	res, err = store.Add(ctx, g.ID, u.ID, models.GroupRoleMember)
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if !res.Reactivated || res.Created {
		t.Errorf("re-add: got %+v, want Reactivated", res)
	}

	n, err := store.CountActiveByGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("CountActiveByGroup: %v", err)
	}
	if n != 1 {
		t.Errorf("active count: got %d, want 1", n)
	}
}

func TestAdd_RequiresExistingUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupmemberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", roles.User)
	g := fx.CreateGroup(ctx, "g", models.GroupStandalone, models.VisibilityPublic, owner.ID)

	_, err := store.Add(ctx, g.ID, primitive.NewObjectID(), models.GroupRoleMember)
	if !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("got %v, want ErrNoDocuments", err)
	}
}

func TestAdd_RejectsBadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupmemberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", roles.User)
	g := fx.CreateGroup(ctx, "g", models.GroupStandalone, models.VisibilityPublic, owner.ID)

	if _, err := store.Add(ctx, g.ID, owner.ID, "overlord"); err == nil {
		t.Error("expected error for invalid group role")
	}
}

func TestRemove_NonMemberIsNoop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupmemberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", roles.User)
	g := fx.CreateGroup(ctx, "g", models.GroupStandalone, models.VisibilityPublic, owner.ID)

	suspended, err := store.Remove(ctx, g.ID, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if suspended {
		t.Error("Remove reported a suspension for a non-member")
	}
}

func TestListActiveByGroup_ExcludesSuspendedAndPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupmemberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", roles.User)
	active := fx.CreateUser(ctx, "Active", roles.User)
	pending := fx.CreateUser(ctx, "Pending", roles.User)
	suspended := fx.CreateUser(ctx, "Suspended", roles.User)
	g := fx.CreateGroup(ctx, "g", models.GroupStandalone, models.VisibilityPublic, owner.ID)

	fx.AddGroupMember(ctx, g.ID, active.ID, models.GroupRoleMember, models.MemberActive)
	fx.AddGroupMember(ctx, g.ID, pending.ID, models.GroupRoleMember, models.MemberPending)
	fx.AddGroupMember(ctx, g.ID, suspended.ID, models.GroupRoleMember, models.MemberSuspended)

	members, err := store.ListActiveByGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListActiveByGroup: %v", err)
	}
	if len(members) != 1 || members[0].UserID != active.ID {
		t.Errorf("got %d members, want just the active one", len(members))
	}
}

func TestSetNotificationOverride_SetAndClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupmemberstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", roles.User)
	u := fx.CreateUser(ctx, "Member", roles.User)
	g := fx.CreateGroup(ctx, "g", models.GroupStandalone, models.VisibilityPublic, owner.ID)
	fx.AddGroupMember(ctx, g.ID, u.ID, models.GroupRoleMember, models.MemberActive)

	o := &models.NotificationOverride{Enabled: models.BoolPtr(false)}
	if err := store.SetNotificationOverride(ctx, g.ID, u.ID, o); err != nil {
		t.Fatalf("set override: %v", err)
	}
	m, err := store.Get(ctx, g.ID, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.NotificationOverride == nil || m.NotificationOverride.Enabled == nil || *m.NotificationOverride.Enabled {
		t.Error("override not persisted")
	}

	if err := store.SetNotificationOverride(ctx, g.ID, u.ID, nil); err != nil {
		t.Fatalf("clear override: %v", err)
	}
	m, err = store.Get(ctx, g.ID, u.ID)
	if err != nil {
		t.Fatalf("Get after clear: %v", err)
	}
	if m.NotificationOverride != nil {
		t.Error("override not cleared")
	}
}
