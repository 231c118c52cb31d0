// internal/app/store/notifications/notificationstore_test.go
package notificationstore_test

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	notificationstore "github.com/lgsf/teamhub/internal/app/store/notifications"
	"github.com/lgsf/teamhub/internal/app/system/roles"
	"github.com/lgsf/teamhub/internal/domain/models"
	"github.com/lgsf/teamhub/internal/testutil"
)

func TestInsert_RejectsMissingRecipient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Insert(ctx, models.Notification{
		UserID: primitive.NewObjectID(),
		Type:   "mention",
		Title:  "hello",
	})
	if !errors.Is(err, notificationstore.ErrRecipientNotFound) {
		t.Errorf("got %v, want ErrRecipientNotFound", err)
	}
}

func TestInsert_AlwaysUnread(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "U", roles.User)

	n, err := store.Insert(ctx, models.Notification{
		UserID: u.ID,
		Type:   "mention",
		Title:  "hi",
		Read:   true, // must be ignored
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n.Read || n.ReadAt != nil {
		t.Errorf("inserted notification must start unread, got read=%v readAt=%v", n.Read, n.ReadAt)
	}
}

func TestListByUser_KeysetPagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "U", roles.User)
	for i := 0; i < 5; i++ {
		fx.CreateNotification(ctx, u.ID, "mention", fmt.Sprintf("n%d", i))
	}

	first, err := store.ListByUser(ctx, u.ID, notificationstore.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 2 || first.NextCursor == "" {
		t.Fatalf("first page: got %d items, cursor %q", len(first.Items), first.NextCursor)
	}
	// Newest first.
	if first.Items[0].Title != "n4" {
		t.Errorf("first item: got %q, want n4", first.Items[0].Title)
	}

	second, err := store.ListByUser(ctx, u.ID, notificationstore.ListOptions{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 2 || second.NextCursor == "" {
		t.Fatalf("second page: got %d items, cursor %q", len(second.Items), second.NextCursor)
	}

	third, err := store.ListByUser(ctx, u.ID, notificationstore.ListOptions{Limit: 2, Cursor: second.NextCursor})
	if err != nil {
		t.Fatalf("third page: %v", err)
	}
	if len(third.Items) != 1 || third.NextCursor != "" {
		t.Errorf("third page: got %d items, cursor %q, want 1 items and empty cursor", len(third.Items), third.NextCursor)
	}
}

func TestListByUser_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "U", roles.User)
	read := fx.CreateNotification(ctx, u.ID, "mention", "old")
	fx.CreateNotification(ctx, u.ID, "security_alert", "alert")
	if err := store.MarkRead(ctx, u.ID, read.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	page, err := store.ListByUser(ctx, u.ID, notificationstore.ListOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("unread list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "alert" {
		t.Errorf("unread list: got %d items", len(page.Items))
	}

	page, err = store.ListByUser(ctx, u.ID, notificationstore.ListOptions{Type: "mention"})
	if err != nil {
		t.Fatalf("typed list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "old" {
		t.Errorf("typed list: got %d items", len(page.Items))
	}
}

func TestMarkRead_Semantics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", roles.User)
	other := fx.CreateUser(ctx, "Other", roles.User)
	n := fx.CreateNotification(ctx, owner.ID, "mention", "x")

	if err := store.MarkRead(ctx, other.ID, n.ID); !errors.Is(err, notificationstore.ErrNotOwner) {
		t.Errorf("other user: got %v, want ErrNotOwner", err)
	}
	if err := store.MarkRead(ctx, owner.ID, primitive.NewObjectID()); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Errorf("missing: got %v, want ErrNoDocuments", err)
	}

	if err := store.MarkRead(ctx, owner.ID, n.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	got := fx.NotificationsFor(ctx, owner.ID)[0]
	if !got.Read || got.ReadAt == nil {
		t.Fatalf("not marked read: read=%v readAt=%v", got.Read, got.ReadAt)
	}
	firstReadAt := *got.ReadAt

	// Re-marking keeps the original read_at.
	if err := store.MarkRead(ctx, owner.ID, n.ID); err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	got = fx.NotificationsFor(ctx, owner.ID)[0]
	if got.ReadAt == nil || !got.ReadAt.Equal(firstReadAt) {
		t.Errorf("read_at changed on re-mark: %v vs %v", got.ReadAt, firstReadAt)
	}
}

func TestMarkAllRead_CountsOnlyUnread(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "U", roles.User)
	n := fx.CreateNotification(ctx, u.ID, "mention", "a")
	fx.CreateNotification(ctx, u.ID, "mention", "b")
	if err := store.MarkRead(ctx, u.ID, n.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	updated, err := store.MarkAllRead(ctx, u.ID)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if updated != 1 {
		t.Errorf("updated: got %d, want 1", updated)
	}
}

func TestDelete_OwnershipAndClearAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", roles.User)
	other := fx.CreateUser(ctx, "Other", roles.User)
	n := fx.CreateNotification(ctx, owner.ID, "mention", "mine")
	fx.CreateNotification(ctx, owner.ID, "mention", "also mine")
	fx.CreateNotification(ctx, other.ID, "mention", "theirs")

	if err := store.Delete(ctx, other.ID, n.ID); !errors.Is(err, notificationstore.ErrNotOwner) {
		t.Errorf("other user delete: got %v, want ErrNotOwner", err)
	}
	if err := store.Delete(ctx, owner.ID, n.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	deleted, err := store.ClearAll(ctx, owner.ID)
	if err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted: got %d, want 1", deleted)
	}
	if n := len(fx.NotificationsFor(ctx, other.ID)); n != 1 {
		t.Errorf("other user lost notifications: %d left", n)
	}
}
