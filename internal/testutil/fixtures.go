// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	channelstore "github.com/lgsf/teamhub/internal/app/store/channels"
	groupmemberstore "github.com/lgsf/teamhub/internal/app/store/groupmembers"
	groupstore "github.com/lgsf/teamhub/internal/app/store/groups"
	orgstore "github.com/lgsf/teamhub/internal/app/store/organizations"
	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/domain/models"
)

// Fixtures provides helper methods for creating test data. Seed data goes
// through the same stores the application uses wherever the store API can
// express it; direct collection writes remain for documents that need fields
// the stores control (IDs, timestamps, generated identities).
type Fixtures struct {
	db       *mongo.Database
	t        *testing.T
	users    *userstore.Store
	orgs     *orgstore.Store
	groups   *groupstore.Store
	members  *groupmemberstore.Store
	channels *channelstore.Store
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{
		db:       db,
		t:        t,
		users:    userstore.New(db),
		orgs:     orgstore.New(db),
		groups:   groupstore.New(db),
		members:  groupmemberstore.New(db),
		channels: channelstore.New(db),
	}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates an active test user with the given role and default
// notification preferences.
func (f *Fixtures) CreateUser(ctx context.Context, name, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          primitive.NewObjectID(),
		AuthSubject: fmt.Sprintf("test-subject-%s", primitive.NewObjectID().Hex()),
		Email:       fmt.Sprintf("%s@test.example", primitive.NewObjectID().Hex()),
		FullName:    name,
		Role:        role,
		Status:      models.StatusActive,
		Preferences: models.Preferences{
			Notifications: models.DefaultNotificationPreferences(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateUserWithPrefs creates an active test user with an explicit
// notification preference bundle.
func (f *Fixtures) CreateUserWithPrefs(ctx context.Context, name, role string, prefs models.NotificationPreferences) models.User {
	f.t.Helper()

	u := f.CreateUser(ctx, name, role)
	u.Preferences.Notifications = prefs
	_, err := f.db.Collection("users").UpdateOne(ctx,
		bson.M{"_id": u.ID},
		bson.M{"$set": bson.M{"preferences.notifications": prefs}},
	)
	if err != nil {
		f.t.Fatalf("failed to set test user preferences: %v", err)
	}
	return u
}

// SetUserStatus flips a user's status.
func (f *Fixtures) SetUserStatus(ctx context.Context, userID primitive.ObjectID, status string) {
	f.t.Helper()

	if err := f.users.SetStatus(ctx, userID, status); err != nil {
		f.t.Fatalf("failed to set test user status: %v", err)
	}
}

// CreateOrganization creates a test organization owned by ownerID.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string, ownerID primitive.ObjectID) models.Organization {
	f.t.Helper()

	org, err := f.orgs.Create(ctx, name, ownerID, "")
	if err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// AddOrgMember joins a user to an organization with the given role.
func (f *Fixtures) AddOrgMember(ctx context.Context, orgID, userID primitive.ObjectID, role string) models.OrgMembership {
	f.t.Helper()

	m := models.OrgMembership{
		ID:        primitive.NewObjectID(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("org_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test org membership: %v", err)
	}
	return m
}

// CreateGroup creates an active test group.
func (f *Fixtures) CreateGroup(ctx context.Context, name, groupType, visibility string, ownerID primitive.ObjectID) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:         primitive.NewObjectID(),
		Name:       name,
		Type:       groupType,
		OwnerID:    ownerID,
		Visibility: visibility,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// SetGroupNotificationDefaults sets a group's notification policy.
func (f *Fixtures) SetGroupNotificationDefaults(ctx context.Context, groupID primitive.ObjectID, nd *models.NotificationDefaults) {
	f.t.Helper()

	if err := f.groups.UpdateNotificationDefaults(ctx, groupID, nd); err != nil {
		f.t.Fatalf("failed to set test group notification defaults: %v", err)
	}
}

// AddGroupMember joins a user to a group with the given role and status.
func (f *Fixtures) AddGroupMember(ctx context.Context, groupID, userID primitive.ObjectID, role, status string) models.GroupMember {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.GroupMember{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		Role:      role,
		Status:    status,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("group_members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test group member: %v", err)
	}
	return m
}

// SetMemberOverride sets a group member's notification override.
func (f *Fixtures) SetMemberOverride(ctx context.Context, groupID, userID primitive.ObjectID, o *models.NotificationOverride) {
	f.t.Helper()

	if err := f.members.SetNotificationOverride(ctx, groupID, userID, o); err != nil {
		f.t.Fatalf("failed to set test member override: %v", err)
	}
}

// CreateChannel creates a test channel in an organization.
func (f *Fixtures) CreateChannel(ctx context.Context, name string, orgID primitive.ObjectID, channelType string) models.Channel {
	f.t.Helper()

	ch, err := f.channels.Create(ctx, models.Channel{
		Name:  name,
		OrgID: orgID,
		Type:  channelType,
	})
	if err != nil {
		f.t.Fatalf("failed to create test channel: %v", err)
	}
	return ch
}

// AddChannelMember joins a user to a channel.
func (f *Fixtures) AddChannelMember(ctx context.Context, channelID, userID primitive.ObjectID, role string) {
	f.t.Helper()

	if err := f.channels.AddMember(ctx, channelID, userID, role); err != nil {
		f.t.Fatalf("failed to create test channel member: %v", err)
	}
}

// CreateNotification inserts one notification directly, bypassing the store.
func (f *Fixtures) CreateNotification(ctx context.Context, userID primitive.ObjectID, notifType, title string) models.Notification {
	f.t.Helper()

	n := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   "test message",
		CreatedAt: time.Now().UTC(),
	}
	if _, err := f.db.Collection("notifications").InsertOne(ctx, n); err != nil {
		f.t.Fatalf("failed to create test notification: %v", err)
	}
	return n
}

// NotificationsFor returns every notification stored for a user.
func (f *Fixtures) NotificationsFor(ctx context.Context, userID primitive.ObjectID) []models.Notification {
	f.t.Helper()

	cur, err := f.db.Collection("notifications").Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		f.t.Fatalf("failed to list test notifications: %v", err)
	}
	defer cur.Close(ctx)

	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		f.t.Fatalf("failed to decode test notifications: %v", err)
	}
	return out
}
