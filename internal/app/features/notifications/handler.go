// internal/app/features/notifications/handler.go

// Package notifications serves the signed-in user's notification feed
// and lifecycle operations, plus the staff-facing targeting endpoints
// that drive the fan-out engine.
package notifications

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lgsf/teamhub/internal/app/notify/engine"
	notificationstore "github.com/lgsf/teamhub/internal/app/store/notifications"
	"github.com/lgsf/teamhub/internal/app/system/auth"
	"github.com/lgsf/teamhub/internal/app/system/respond"
	"github.com/lgsf/teamhub/internal/app/system/timeouts"
	"github.com/lgsf/teamhub/internal/domain/models"
)

type Handler struct {
	Notifications *notificationstore.Store
	Engine        *engine.Engine
	Log           *zap.Logger
}

func NewHandler(notifications *notificationstore.Store, eng *engine.Engine, logger *zap.Logger) *Handler {
	return &Handler{
		Notifications: notifications,
		Engine:        eng,
		Log:           logger,
	}
}

// currentUserID extracts the signed-in user's ObjectID. Returns false
// after writing the error response.
func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return primitive.NilObjectID, false
	}
	uid, err := u.ObjectID()
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid session")
		return primitive.NilObjectID, false
	}
	return uid, true
}

// queryUserID is the query-path variant: no error is written for an
// anonymous caller, so the handler can degrade to an empty result.
func queryUserID(r *http.Request) (primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	uid, err := u.ObjectID()
	if err != nil {
		return primitive.NilObjectID, false
	}
	return uid, true
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeList handles GET /notifications.
// Query parameters: cursor (hex id), limit, unread (true), type.
// Anonymous callers get an empty page, not an error.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, ok := queryUserID(r)
	if !ok {
		respond.JSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"items":       []models.Notification{},
			"next_cursor": nil,
		})
		return
	}

	opts := notificationstore.ListOptions{
		Cursor:     r.URL.Query().Get("cursor"),
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Type:       r.URL.Query().Get("type"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respond.Error(w, http.StatusBadRequest, "limit must be 1-100")
			return
		}
		opts.Limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Notifications.ListByUser(ctx, uid, opts)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"items":       page.Items,
		"next_cursor": page.NextCursor,
	})
}

// ServeUnreadCount handles GET /notifications/unread-count.
// Anonymous callers get a zero count, not an error.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	uid, ok := queryUserID(r)
	if !ok {
		respond.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"count":   0,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	count, err := h.Notifications.UnreadCount(ctx, uid)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   count,
	})
}

// ServeMarkRead handles POST /notifications/{id}/read.
// Marking is one-way and idempotent; re-marking an already-read
// notification succeeds without touching read_at.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, uid, id); err != nil {
		if errors.Is(err, notificationstore.ErrNotOwner) {
			respond.Error(w, http.StatusForbidden, "not your notification")
			return
		}
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.Success(w)
}

// ServeMarkAllRead handles POST /notifications/read-all.
func (h *Handler) ServeMarkAllRead(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	updated, err := h.Notifications.MarkAllRead(ctx, uid)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"updated": updated,
	})
}

// ServeDelete handles DELETE /notifications/{id}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Notifications.Delete(ctx, uid, id); err != nil {
		if errors.Is(err, notificationstore.ErrNotOwner) {
			respond.Error(w, http.StatusForbidden, "not your notification")
			return
		}
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.Success(w)
}

// ServeClearAll handles DELETE /notifications.
func (h *Handler) ServeClearAll(w http.ResponseWriter, r *http.Request) {
	uid, ok := currentUserID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	deleted, err := h.Notifications.ClearAll(ctx, uid)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"deleted": deleted,
	})
}
