// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/lgsf/teamhub/internal/app/store/oauthstate"
	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/app/system/auditlog"
	"github.com/lgsf/teamhub/internal/app/system/auth"
	"github.com/lgsf/teamhub/internal/app/system/normalize"
	"github.com/lgsf/teamhub/internal/app/system/timeouts"
	"github.com/lgsf/teamhub/internal/domain/models"
)

// Config holds Google OAuth settings.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // e.g. "https://teamhub.example.com"
}

// Handler handles Google OAuth sign-in. A user record is keyed by the
// provider's stable subject id; first sign-in provisions the record,
// and accounts bootstrapped by email are claimed on first sign-in.
type Handler struct {
	Users      *userstore.Store
	StateStore *oauthstate.Store
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	clientID     string
	clientSecret string
	redirectURL  string
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(cfg Config, users *userstore.Store, stateStore *oauthstate.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        users,
		StateStore:   stateStore,
		AuditLog:     audit,
		Log:          logger,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		redirectURL:  cfg.BaseURL + "/auth/google/callback",
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.clientID,
		ClientSecret: h.clientSecret,
		RedirectURL:  h.redirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.clientID != "" && h.clientSecret != ""
}

// ServeLogin handles GET /auth/google.
// Initiates the OAuth flow by redirecting to Google's consent screen.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}

	returnURL := r.URL.Query().Get("return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	if err := h.StateStore.Save(ctx, state, returnURL, expiresAt); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}

	url := h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// ServeCallback handles GET /auth/google/callback.
// Validates state, exchanges the code, syncs the user record, and
// starts the session.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Redirect(w, r, "/?error=google_denied", http.StatusSeeOther)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		http.Redirect(w, r, "/?error=invalid_state", http.StatusSeeOther)
		return
	}

	ctxShort, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctxShort, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		http.Redirect(w, r, "/?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		http.Redirect(w, r, "/?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, "/?error=token_exchange", http.StatusSeeOther)
		return
	}

	googleUser, err := fetchGoogleUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Redirect(w, r, "/?error=user_info", http.StatusSeeOther)
		return
	}

	user, created, err := h.SyncUser(ctxShort, googleUser)
	if err != nil {
		h.Log.Error("failed to sync user", zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}

	if user.Status != models.StatusActive {
		h.Log.Info("sign-in rejected: account not active",
			zap.String("user_id", user.ID.Hex()),
			zap.String("status", user.Status))
		h.AuditLog.SignInUserDisabled(ctx, r, user.ID, user.Email, user.Status)
		http.Redirect(w, r, "/?error=account_disabled", http.StatusSeeOther)
		return
	}

	su := &auth.SessionUser{
		ID:    user.ID.Hex(),
		Name:  user.FullName,
		Email: user.Email,
		Role:  user.Role,
	}
	if err := auth.SignIn(w, r, su); err != nil {
		h.Log.Error("failed to start session", zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}

	if created {
		h.AuditLog.SignInUserCreated(ctx, r, user.ID, user.Email)
	}
	h.AuditLog.SignInSuccess(ctx, r, user.ID, user.OrgID, user.Email)

	if returnURL == "" || returnURL[0] != '/' {
		returnURL = "/"
	}
	http.Redirect(w, r, returnURL, http.StatusSeeOther)
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// SyncUser reconciles the Google identity with the users collection.
// Lookup order: provider subject, then email (accounts provisioned
// before first sign-in get the subject bound), then a new record.
// Returning sign-ins refresh the profile fields Google owns; a failed
// refresh does not block the sign-in.
func (h *Handler) SyncUser(ctx context.Context, gu *googleUserInfo) (*models.User, bool, error) {
	subject := "google:" + gu.ID

	user, err := h.Users.GetByAuthSubject(ctx, subject)
	if err == nil {
		name, email := normalize.Name(gu.Name), normalize.Email(gu.Email)
		if user.FullName != name || user.Email != email {
			if upErr := h.Users.UpdateProfile(ctx, user.ID, gu.Name, gu.Email); upErr != nil {
				h.Log.Warn("failed to refresh user profile",
					zap.String("user_id", user.ID.Hex()),
					zap.Error(upErr))
			} else {
				user.FullName = name
				user.Email = email
			}
		}
		return user, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	user, err = h.Users.GetByEmail(ctx, gu.Email)
	if err == nil {
		if claimErr := h.Users.ClaimSubject(ctx, user.ID, subject); claimErr != nil {
			return nil, false, claimErr
		}
		user.AuthSubject = subject
		return user, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	created, err := h.Users.Create(ctx, models.User{
		AuthSubject: subject,
		Email:       gu.Email,
		FullName:    gu.Name,
	})
	if err != nil {
		return nil, false, err
	}
	return &created, true, nil
}

// generateState produces a URL-safe random state token.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
