// internal/app/features/preferences/handler.go

// Package preferences serves the signed-in user's notification
// preference bundle. Reads return a fully resolved bundle (stored
// values over defaults); writes shallow-merge the submitted top-level
// sections into the stored bundle.
package preferences

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/app/system/auditlog"
	"github.com/lgsf/teamhub/internal/app/system/auth"
	"github.com/lgsf/teamhub/internal/app/system/respond"
	"github.com/lgsf/teamhub/internal/app/system/timeouts"
	"github.com/lgsf/teamhub/internal/domain/models"
	"go.uber.org/zap"
)

type Handler struct {
	Users    *userstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		AuditLog: audit,
		Log:      logger,
	}
}

// ServeGet handles GET /me/preferences. Anonymous callers get a null
// bundle, not an error.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.JSON(w, http.StatusOK, map[string]any{
			"success":       true,
			"notifications": nil,
		})
		return
	}
	uid, err := u.ObjectID()
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid session")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}

	prefs := user.Preferences.Notifications
	if prefs.Enabled == nil {
		// Documents imported without a bundle resolve to the defaults.
		prefs = models.DefaultNotificationPreferences()
	}
	prefs.Normalize()

	respond.JSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"notifications": prefs,
	})
}

// ServePut handles PUT /me/preferences.
// The body is a partial NotificationPreferences document; submitted
// top-level sections replace the stored ones wholesale, omitted
// sections are untouched. email.security cannot be turned off.
func (h *Handler) ServePut(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	uid, err := u.ObjectID()
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid session")
		return
	}

	var body struct {
		Notifications models.NotificationPreferences `json:"notifications"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if body.Notifications.InApp != nil {
		switch body.Notifications.InApp.Type {
		case "", models.InAppAll, models.InAppMentions, models.InAppNone:
		default:
			respond.Error(w, http.StatusBadRequest, "in_app.type must be all, mentions, or none")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	merged, err := h.Users.UpdateNotificationPreferences(ctx, uid, body.Notifications)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}

	h.AuditLog.PrefsUpdated(ctx, r, uid, updatedSections(body.Notifications))

	respond.JSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"notifications": merged,
	})
}

// updatedSections names the top-level keys present in the update, for
// the audit trail.
func updatedSections(p models.NotificationPreferences) string {
	var sections []string
	if p.Enabled != nil {
		sections = append(sections, "enabled")
	}
	if p.InApp != nil {
		sections = append(sections, "in_app")
	}
	if p.Email != nil {
		sections = append(sections, "email")
	}
	if p.Push != nil {
		sections = append(sections, "push")
	}
	if p.Mobile != nil {
		sections = append(sections, "mobile")
	}
	return strings.Join(sections, ",")
}
