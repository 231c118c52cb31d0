package auditlog

import (
	"net/http/httptest"
	"testing"

	"github.com/lgsf/teamhub/internal/app/store/audit"
	"github.com/lgsf/teamhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestLog_RespectsCategorySettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	logger := New(store, zap.NewNop(), Config{Auth: "db", Admin: "off", Notify: "all"})

	r := httptest.NewRequest("POST", "/auth/google/callback", nil)
	userID := primitive.NewObjectID()

	logger.SignInSuccess(ctx, r, userID, nil, "a@example.com")
	logger.GroupCreated(ctx, r, userID, primitive.NewObjectID(), "team", "team")
	logger.Log(ctx, audit.Event{
		Category:  audit.CategoryNotify,
		EventType: audit.EventNotifyUsers,
		ActorID:   &userID,
		Success:   true,
	})

	events, err := store.Query(ctx, audit.QueryFilter{Limit: 50})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 stored events (admin disabled), got %d", len(events))
	}
	for _, e := range events {
		if e.Category == audit.CategoryAdmin {
			t.Errorf("admin event stored despite 'off' setting: %+v", e)
		}
	}
}

func TestLog_NilLoggerIsNoop(t *testing.T) {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var l *Logger
	l.Log(ctx, audit.Event{Category: audit.CategoryAuth, EventType: audit.EventSignOut})
}

func TestSignOut_ParsesUserID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := audit.New(db)
	logger := New(store, zap.NewNop(), Config{Auth: "db"})

	r := httptest.NewRequest("POST", "/logout", nil)
	userID := primitive.NewObjectID()

	logger.SignOut(ctx, r, userID.Hex())

	events, err := store.Query(ctx, audit.QueryFilter{UserID: &userID, Limit: 10})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event for user, got %d", len(events))
	}
	if events[0].EventType != audit.EventSignOut {
		t.Errorf("event type = %q, want %q", events[0].EventType, audit.EventSignOut)
	}
}
