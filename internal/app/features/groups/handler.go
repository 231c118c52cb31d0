// internal/app/features/groups/handler.go

// Package groups serves the group directory plus join/leave, the
// membership operations the targeting engine resolves against.
package groups

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	groupmemberstore "github.com/lgsf/teamhub/internal/app/store/groupmembers"
	groupstore "github.com/lgsf/teamhub/internal/app/store/groups"
	orgstore "github.com/lgsf/teamhub/internal/app/store/organizations"
	"github.com/lgsf/teamhub/internal/app/system/auditlog"
	"github.com/lgsf/teamhub/internal/app/system/auth"
	"github.com/lgsf/teamhub/internal/app/system/htmlsanitize"
	"github.com/lgsf/teamhub/internal/app/system/respond"
	"github.com/lgsf/teamhub/internal/app/system/roles"
	"github.com/lgsf/teamhub/internal/app/system/timeouts"
	"github.com/lgsf/teamhub/internal/domain/models"
)

type Handler struct {
	Groups   *groupstore.Store
	Members  *groupmemberstore.Store
	Orgs     *orgstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(groups *groupstore.Store, members *groupmemberstore.Store, orgs *orgstore.Store, auditLog *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Groups:   groups,
		Members:  members,
		Orgs:     orgs,
		AuditLog: auditLog,
		Log:      logger,
	}
}

func sessionUserID(w http.ResponseWriter, r *http.Request) (*auth.SessionUser, primitive.ObjectID, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, primitive.NilObjectID, false
	}
	uid, err := u.ObjectID()
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid session")
		return nil, primitive.NilObjectID, false
	}
	return u, uid, true
}

func groupPathID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid group id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// ServeList handles GET /groups. Optional ?type= filters by group type.
// Anonymous callers get an empty list, not an error.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); !ok {
		respond.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"groups":  []models.Group{},
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		groups []models.Group
		err    error
	)
	if gt := r.URL.Query().Get("type"); gt != "" {
		groups, err = h.Groups.ListActiveByType(ctx, gt, nil)
	} else {
		groups, err = h.Groups.ListActive(ctx)
	}
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"groups":  groups,
	})
}

// ServeGet handles GET /groups/{id}. Anonymous callers get a null group.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); !ok {
		respond.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"group":   nil,
		})
		return
	}

	id, ok := groupPathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"group":   g,
	})
}

// ServeCreate handles POST /groups.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := sessionUserID(w, r)
	if !ok {
		return
	}

	var body struct {
		Name           string `json:"name"`
		Description    string `json:"description"`
		Type           string `json:"type"`
		Visibility     string `json:"visibility"`
		OrganizationID string `json:"organization_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Name == "" {
		respond.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if !models.IsValidGroupType(body.Type) {
		respond.Error(w, http.StatusBadRequest, "invalid group type")
		return
	}

	g := models.Group{
		Name:        htmlsanitize.Sanitize(body.Name),
		Description: htmlsanitize.Sanitize(body.Description),
		Type:        body.Type,
		Visibility:  body.Visibility,
		OwnerID:     uid,
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if body.OrganizationID != "" {
		oid, err := primitive.ObjectIDFromHex(body.OrganizationID)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid organization_id")
			return
		}
		if _, err := h.Orgs.GetByID(ctx, oid); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				respond.Error(w, http.StatusNotFound, "organization not found")
				return
			}
			respond.FromErr(w, h.Log, err)
			return
		}
		g.OrgID = &oid
	}

	created, err := h.Groups.Create(ctx, g)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}

	// The owner joins their own group immediately.
	if _, err := h.Members.Add(ctx, created.ID, uid, models.GroupRoleOwner); err != nil {
		h.Log.Warn("owner auto-join failed",
			zap.String("group_id", created.ID.Hex()), zap.Error(err))
	} else if err := h.Groups.AdjustMemberCount(ctx, created.ID, 1); err != nil {
		h.Log.Warn("member count adjust failed",
			zap.String("group_id", created.ID.Hex()), zap.Error(err))
	}

	h.AuditLog.GroupCreated(ctx, r, uid, created.ID, created.Name, created.Type)

	respond.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"group":   created,
	})
}

// ServeDeactivate handles DELETE /groups/{id}. Groups deactivate rather
// than delete so notification provenance stays resolvable.
func (h *Handler) ServeDeactivate(w http.ResponseWriter, r *http.Request) {
	u, uid, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := groupPathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	if g.OwnerID != uid && !roles.AtLeast(u.Role, roles.Admin) {
		respond.Error(w, http.StatusForbidden, "only the owner or an admin can deactivate a group")
		return
	}

	if err := h.Groups.SetActive(ctx, id, false); err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	h.AuditLog.GroupDeactivated(ctx, r, uid, id)
	respond.Success(w)
}

// ServeJoin handles POST /groups/{id}/join. Rejoining after a leave
// reactivates the suspended membership in place.
func (h *Handler) ServeJoin(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := groupPathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	if !g.IsActive {
		respond.Error(w, http.StatusConflict, "group is not active")
		return
	}

	res, err := h.Members.Add(ctx, id, uid, models.GroupRoleMember)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			respond.Error(w, http.StatusNotFound, "user not found")
			return
		}
		respond.FromErr(w, h.Log, err)
		return
	}
	if res.Created || res.Reactivated {
		if err := h.Groups.AdjustMemberCount(ctx, id, 1); err != nil {
			h.Log.Warn("member count adjust failed",
				zap.String("group_id", id.Hex()), zap.Error(err))
		}
		h.AuditLog.GroupMemberJoined(ctx, r, uid, id, res.Reactivated)
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"joined":      res.Created || res.Reactivated,
		"reactivated": res.Reactivated,
	})
}

// ServeLeave handles POST /groups/{id}/leave. The membership is suspended,
// not removed, so a later rejoin keeps its history.
func (h *Handler) ServeLeave(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := groupPathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	left, err := h.Members.Remove(ctx, id, uid)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	if left {
		if err := h.Groups.AdjustMemberCount(ctx, id, -1); err != nil {
			h.Log.Warn("member count adjust failed",
				zap.String("group_id", id.Hex()), zap.Error(err))
		}
		h.AuditLog.GroupMemberLeft(ctx, r, uid, id)
	}

	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"left":    left,
	})
}

// ServeMembers handles GET /groups/{id}/members. Anonymous callers get
// an empty list.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); !ok {
		respond.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"members": []models.GroupMember{},
		})
		return
	}

	id, ok := groupPathID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	members, err := h.Members.ListActiveByGroup(ctx, id)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"members": members,
	})
}

// ServeSetNotificationDefaults handles PUT /groups/{id}/notification-defaults.
// The body is the group-level notification policy document; a JSON null
// clears it, restoring the notifications-flow default. Only the owner or
// an admin may change it.
func (h *Handler) ServeSetNotificationDefaults(w http.ResponseWriter, r *http.Request) {
	u, uid, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := groupPathID(w, r)
	if !ok {
		return
	}

	var nd *models.NotificationDefaults
	if err := json.NewDecoder(r.Body).Decode(&nd); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Groups.GetByID(ctx, id)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	if g.OwnerID != uid && !roles.AtLeast(u.Role, roles.Admin) {
		respond.Error(w, http.StatusForbidden, "only the owner or an admin can change group notification defaults")
		return
	}

	if err := h.Groups.UpdateNotificationDefaults(ctx, id, nd); err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"notification_defaults": nd,
	})
}

// ServeSetMemberNotifications handles PUT /groups/{id}/notifications.
// Members set or clear their own per-group override; a JSON null clears
// it, falling back to the group defaults.
func (h *Handler) ServeSetMemberNotifications(w http.ResponseWriter, r *http.Request) {
	_, uid, ok := sessionUserID(w, r)
	if !ok {
		return
	}
	id, ok := groupPathID(w, r)
	if !ok {
		return
	}

	var o *models.NotificationOverride
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	active, err := h.Members.IsActiveMember(ctx, id, uid)
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	if !active {
		respond.Error(w, http.StatusForbidden, "not an active member of this group")
		return
	}

	if err := h.Members.SetNotificationOverride(ctx, id, uid, o); err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":               true,
		"notification_override": o,
	})
}
