// internal/app/features/notifications/handler_test.go
package notifications_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	notificationsfeature "github.com/lgsf/teamhub/internal/app/features/notifications"
	"github.com/lgsf/teamhub/internal/app/notify/engine"
	"github.com/lgsf/teamhub/internal/app/notify/target"
	"github.com/lgsf/teamhub/internal/app/store/audit"
	channelstore "github.com/lgsf/teamhub/internal/app/store/channels"
	groupmemberstore "github.com/lgsf/teamhub/internal/app/store/groupmembers"
	groupstore "github.com/lgsf/teamhub/internal/app/store/groups"
	membershipstore "github.com/lgsf/teamhub/internal/app/store/memberships"
	notificationstore "github.com/lgsf/teamhub/internal/app/store/notifications"
	orgstore "github.com/lgsf/teamhub/internal/app/store/organizations"
	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/app/system/auditlog"
	"github.com/lgsf/teamhub/internal/app/system/roles"
	"github.com/lgsf/teamhub/internal/app/system/workers"
	"github.com/lgsf/teamhub/internal/domain/models"
	"github.com/lgsf/teamhub/internal/testutil"
)

func newTestHandler(t *testing.T, db *mongo.Database) *notificationsfeature.Handler {
	t.Helper()

	resolver := target.NewResolver(
		userstore.New(db),
		orgstore.New(db),
		membershipstore.New(db),
		groupstore.New(db),
		groupmemberstore.New(db),
		channelstore.New(db),
	)
	pool, err := workers.NewPool("fanout-test", 4, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	t.Cleanup(func() { pool.Shutdown(5 * time.Second) })

	store := notificationstore.New(db)
	auditLogger := auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{Notify: "db"})
	eng := engine.New(resolver, store, auditLogger, pool, zap.NewNop())
	return notificationsfeature.NewHandler(store, eng, zap.NewNop())
}

func asUser(r *http.Request, u models.User) *http.Request {
	return testutil.WithUser(r, testutil.TestUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	})
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestLifecycle_ListAndMarkRead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	router := notificationsfeature.Routes(h)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Reader", roles.User)
	n1 := fx.CreateNotification(ctx, u.ID, "mention", "first")
	fx.CreateNotification(ctx, u.ID, "mention", "second")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), u))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got status %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON(t, rec)
	items, _ := body["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("list: got %d notifications, want 2", len(items))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/"+n1.ID.Hex()+"/read", nil), u))
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read: got status %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/unread-count", nil), u))
	body = decodeJSON(t, rec)
	if got, _ := body["count"].(float64); got != 1 {
		t.Errorf("unread count: got %v, want 1", body["count"])
	}
}

func TestLifecycle_MarkReadOtherUsersNotification(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	router := notificationsfeature.Routes(h)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fx.CreateUser(ctx, "Owner", roles.User)
	other := fx.CreateUser(ctx, "Other", roles.User)
	n := fx.CreateNotification(ctx, owner.ID, "mention", "private")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodPost, "/"+n.ID.Hex()+"/read", nil), other))
	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", rec.Code)
	}
}

func TestLifecycle_ClearAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	router := notificationsfeature.Routes(h)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Clearer", roles.User)
	fx.CreateNotification(ctx, u.ID, "mention", "a")
	fx.CreateNotification(ctx, u.ID, "mention", "b")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodDelete, "/", nil), u))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear all: got status %d: %s", rec.Code, rec.Body.String())
	}
	if got, _ := decodeJSON(t, rec)["deleted"].(float64); got != 2 {
		t.Errorf("deleted: got %v, want 2", got)
	}
	if n := len(fx.NotificationsFor(ctx, u.ID)); n != 0 {
		t.Errorf("remaining notifications: got %d, want 0", n)
	}
}

func TestTargeting_NotifyUserRequiresStaffRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	router := notificationsfeature.TargetingRoutes(h)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	regular := fx.CreateUser(ctx, "Regular", roles.User)
	recipient := fx.CreateUser(ctx, "Recipient", roles.User)

	payload := `{"user_id":"` + recipient.ID.Hex() + `","type":"direct_message","title":"hi"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(payload))
	router.ServeHTTP(rec, asUser(req, regular))
	if rec.Code != http.StatusForbidden {
		t.Errorf("regular user: got status %d, want 403", rec.Code)
	}
}

func TestTargeting_NotifyUserSanitizesContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	router := notificationsfeature.TargetingRoutes(h)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	manager := fx.CreateUser(ctx, "Manager", roles.Manager)
	recipient := fx.CreateUser(ctx, "Recipient", roles.User)

	body, _ := json.Marshal(map[string]any{
		"user_id": recipient.ID.Hex(),
		"type":    "direct_message",
		"title":   `<script>alert(1)</script>deploy done`,
		"message": "all green",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/user", bytes.NewReader(body))
	router.ServeHTTP(rec, asUser(req, manager))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	got := fx.NotificationsFor(ctx, recipient.ID)
	if len(got) != 1 {
		t.Fatalf("recipient notifications: got %d, want 1", len(got))
	}
	if strings.Contains(got[0].Title, "<script>") {
		t.Errorf("title not sanitized: %q", got[0].Title)
	}
	if !strings.Contains(got[0].Title, "deploy done") {
		t.Errorf("title lost text content: %q", got[0].Title)
	}
}

func TestTargeting_NotifyGroupReportsOutcome(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	router := notificationsfeature.TargetingRoutes(h)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	manager := fx.CreateUser(ctx, "Lead", roles.Manager)
	a := fx.CreateUser(ctx, "A", roles.User)
	b := fx.CreateUser(ctx, "B", roles.User)

	g := fx.CreateGroup(ctx, "ops", models.GroupStandalone, models.VisibilityPrivate, manager.ID)
	fx.SetGroupNotificationDefaults(ctx, g.ID, &models.NotificationDefaults{Enabled: models.BoolPtr(true)})
	fx.AddGroupMember(ctx, g.ID, manager.ID, models.GroupRoleOwner, models.MemberActive)
	fx.AddGroupMember(ctx, g.ID, a.ID, models.GroupRoleMember, models.MemberActive)
	fx.AddGroupMember(ctx, g.ID, b.ID, models.GroupRoleMember, models.MemberActive)

	payload := `{"exclude_sender":true,"type":"group_announcement","title":"standup moved"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/group/"+g.ID.Hex(), strings.NewReader(payload))
	router.ServeHTTP(rec, asUser(req, manager))
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeJSON(t, rec)
	if got, _ := body["sent"].(float64); got != 2 {
		t.Errorf("sent: got %v, want 2", body["sent"])
	}
	if n := len(fx.NotificationsFor(ctx, manager.ID)); n != 0 {
		t.Errorf("sender excluded but got %d notifications", n)
	}
}

func TestTargeting_InvalidBodyRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	router := notificationsfeature.TargetingRoutes(h)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	manager := fx.CreateUser(ctx, "Lead", roles.Manager)

	cases := []struct {
		name string
		body string
	}{
		{"missing title", `{"user_id":"` + manager.ID.Hex() + `","type":"x"}`},
		{"bad user id", `{"user_id":"nope","type":"x","title":"t"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/user", strings.NewReader(tc.body))
		router.ServeHTTP(rec, asUser(req, manager))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: got status %d, want 400", tc.name, rec.Code)
		}
	}
}

func TestAnonymousQueriesDegrade(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db)
	router := notificationsfeature.Routes(h)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Someone", roles.User)
	fx.CreateNotification(ctx, u.ID, "mention", "unseen")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous list: got status %d, want 200", rec.Code)
	}
	body := decodeJSON(t, rec)
	if items, _ := body["items"].([]any); len(items) != 0 {
		t.Errorf("anonymous list: got %d items, want 0", len(items))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unread-count", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous unread count: got status %d, want 200", rec.Code)
	}
	body = decodeJSON(t, rec)
	if got, _ := body["count"].(float64); got != 0 {
		t.Errorf("anonymous unread count: got %v, want 0", body["count"])
	}

	// Mutations stay closed to anonymous callers.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/read-all", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous read-all: got status %d, want 401", rec.Code)
	}
}
