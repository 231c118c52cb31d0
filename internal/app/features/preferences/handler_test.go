package preferences_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lgsf/teamhub/internal/app/features/preferences"
	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/domain/models"
	"github.com/lgsf/teamhub/internal/testutil"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*preferences.Handler, models.User) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users := userstore.New(db)
	user, err := users.Create(ctx, models.User{
		AuthSubject: "google-prefs",
		Email:       "prefs@example.com",
		FullName:    "Prefs User",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return preferences.NewHandler(users, nil, zap.NewNop()), user
}

func asUser(r *http.Request, u models.User) *http.Request {
	return testutil.WithUser(r, testutil.TestUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	})
}

func TestServeGet_ReturnsDefaults(t *testing.T) {
	h, user := setup(t)

	req := asUser(httptest.NewRequest("GET", "/me/preferences", nil), user)
	rec := httptest.NewRecorder()
	h.ServeGet(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Success       bool                            `json:"success"`
		Notifications models.NotificationPreferences `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !body.Success {
		t.Error("success = false")
	}
	n := body.Notifications
	if n.Enabled == nil || !*n.Enabled {
		t.Error("default enabled should be true")
	}
	if n.Email == nil || n.Email.Security == nil || !*n.Email.Security {
		t.Error("email.security must resolve to true")
	}
	if n.Email.Marketing == nil || *n.Email.Marketing {
		t.Error("default email.marketing should be false")
	}
	if n.InApp == nil || n.InApp.Type != models.InAppAll {
		t.Error("default in_app.type should be all")
	}
}

func TestServePut_ShallowMerge(t *testing.T) {
	h, user := setup(t)

	// Update only the email section; in_app must keep its defaults.
	payload := `{"notifications":{"email":{"enabled":true,"marketing":true,"security":false}}}`
	req := asUser(httptest.NewRequest("PUT", "/me/preferences", strings.NewReader(payload)), user)
	rec := httptest.NewRecorder()
	h.ServePut(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Notifications models.NotificationPreferences `json:"notifications"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	n := body.Notifications
	if n.Email == nil || n.Email.Marketing == nil || !*n.Email.Marketing {
		t.Error("email.marketing update lost")
	}
	// Pinned regardless of the submitted false.
	if n.Email.Security == nil || !*n.Email.Security {
		t.Error("email.security was unpinned")
	}
	if n.InApp == nil || n.InApp.Type != models.InAppAll {
		t.Error("untouched in_app section changed")
	}
}

func TestServePut_RejectsBadInAppType(t *testing.T) {
	h, user := setup(t)

	payload := `{"notifications":{"in_app":{"enabled":true,"type":"sometimes"}}}`
	req := asUser(httptest.NewRequest("PUT", "/me/preferences", strings.NewReader(payload)), user)
	rec := httptest.NewRecorder()
	h.ServePut(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRoutes_AnonymousAccess(t *testing.T) {
	h, _ := setup(t)

	srv := httptest.NewServer(preferences.Routes(h))
	defer srv.Close()

	// The read degrades to a null bundle.
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("anonymous GET status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["notifications"] != nil {
		t.Errorf("anonymous GET notifications = %v, want null", body["notifications"])
	}

	// The update still requires a session.
	req, err := http.NewRequest("PUT", srv.URL+"/", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	putResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer putResp.Body.Close()
	if putResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous PUT status = %d, want 401", putResp.StatusCode)
	}
}
