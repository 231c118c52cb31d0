// internal/app/features/notifications/targeting.go
package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/lgsf/teamhub/internal/app/notify/engine"
	"github.com/lgsf/teamhub/internal/app/notify/target"
	"github.com/lgsf/teamhub/internal/app/system/auth"
	"github.com/lgsf/teamhub/internal/app/system/htmlsanitize"
	"github.com/lgsf/teamhub/internal/app/system/respond"
	"github.com/lgsf/teamhub/internal/app/system/timeouts"
)

// payloadBody is the notification content common to every targeting
// request. Title and message are sanitized before fan-out; Data rides
// along untouched except where provenance keys overwrite it.
type payloadBody struct {
	Type    string         `json:"type"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func (b *payloadBody) validate(w http.ResponseWriter) bool {
	if b.Type == "" || b.Title == "" {
		respond.Error(w, http.StatusBadRequest, "type and title are required")
		return false
	}
	return true
}

func (b *payloadBody) toPayload() engine.Payload {
	return engine.Payload{
		Type:    b.Type,
		Title:   htmlsanitize.Sanitize(b.Title),
		Message: htmlsanitize.Sanitize(b.Message),
		Data:    b.Data,
	}
}

// requester builds the engine requester from the session user. The
// router has already enforced sign-in and role.
func requester(w http.ResponseWriter, r *http.Request) (target.Requester, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return target.Requester{}, false
	}
	uid, err := u.ObjectID()
	if err != nil {
		respond.Error(w, http.StatusUnauthorized, "invalid session")
		return target.Requester{}, false
	}
	return target.Requester{UserID: uid, Role: u.Role}, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func failureIDs(failures []engine.CandidateFailure) []string {
	if len(failures) == 0 {
		return nil
	}
	ids := make([]string, 0, len(failures))
	for _, f := range failures {
		ids = append(ids, f.UserID.Hex())
	}
	return ids
}

func groupJSON(g engine.GroupOutcome) map[string]any {
	return map[string]any{
		"groupId":      g.GroupID.Hex(),
		"groupName":    g.GroupName,
		"totalMembers": g.TotalMembers,
		"sent":         g.Sent,
		"failed":       failureIDs(g.Failures),
	}
}

func batchJSON(b *engine.BatchOutcome) map[string]any {
	groups := make([]map[string]any, 0, len(b.Groups))
	for _, g := range b.Groups {
		groups = append(groups, groupJSON(g))
	}
	failed := make([]map[string]any, 0, len(b.Failed))
	for _, f := range b.Failed {
		failed = append(failed, map[string]any{
			"groupId": f.GroupID.Hex(),
			"error":   f.Err.Error(),
		})
	}
	return map[string]any{
		"success":     true,
		"batchId":     b.BatchID,
		"totalGroups": b.TotalGroups,
		"totalSent":   b.TotalSent,
		"groups":      groups,
		"failed":      failed,
	}
}

// ServeNotifyUser handles POST /notify/user.
func (h *Handler) ServeNotifyUser(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	var body struct {
		UserID string `json:"user_id"`
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}
	uid, err := primitive.ObjectIDFromHex(body.UserID)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := h.Engine.NotifyUser(ctx, req, uid, body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"notificationId": n.ID.Hex(),
	})
}

// ServeNotifyUsers handles POST /notify/users.
// Missing recipients are dropped, not errors; preference opt-outs do
// not apply on the explicit-list path.
func (h *Handler) ServeNotifyUsers(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	var body struct {
		UserIDs []string `json:"user_ids"`
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}
	if len(body.UserIDs) == 0 {
		respond.Error(w, http.StatusBadRequest, "user_ids is required")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(body.UserIDs))
	for _, raw := range body.UserIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid user id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	out, err := h.Engine.NotifyUsers(ctx, req, ids, body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"requested": out.Requested,
		"resolved":  out.Resolved,
		"sent":      out.Sent,
		"failed":    failureIDs(out.Failures),
	})
}

// groupOptionsBody is the targeting options shared by group endpoints.
type groupOptionsBody struct {
	ExcludeSender bool     `json:"exclude_sender"`
	ExcludedRoles []string `json:"excluded_roles"`
}

func (b groupOptionsBody) toOptions() target.GroupOptions {
	return target.GroupOptions{
		ExcludeSender: b.ExcludeSender,
		ExcludedRoles: b.ExcludedRoles,
	}
}

// ServeNotifyGroup handles POST /notify/group/{id}.
func (h *Handler) ServeNotifyGroup(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}
	groupID, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		groupOptionsBody
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	out, err := h.Engine.NotifyGroup(ctx, req, groupID, body.toOptions(), body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	resp := groupJSON(*out)
	resp["success"] = true
	respond.JSON(w, http.StatusOK, resp)
}

// ServeNotifyGroups handles POST /notify/groups.
// Per-group failures are reported in the response, not raised.
func (h *Handler) ServeNotifyGroups(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	var body struct {
		GroupIDs []string `json:"group_ids"`
		groupOptionsBody
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}
	if len(body.GroupIDs) == 0 {
		respond.Error(w, http.StatusBadRequest, "group_ids is required")
		return
	}
	ids := make([]primitive.ObjectID, 0, len(body.GroupIDs))
	for _, raw := range body.GroupIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid group id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	out, err := h.Engine.NotifyGroups(ctx, req, ids, body.toOptions(), body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, batchJSON(out))
}

// ServeNotifyGroupsByType handles POST /notify/groups/type/{type}.
func (h *Handler) ServeNotifyGroupsByType(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}
	groupType := chi.URLParam(r, "type")

	var body struct {
		OrganizationID string `json:"organization_id"`
		groupOptionsBody
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}

	var orgID *primitive.ObjectID
	if body.OrganizationID != "" {
		oid, err := primitive.ObjectIDFromHex(body.OrganizationID)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid organization_id")
			return
		}
		orgID = &oid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	out, err := h.Engine.NotifyGroupsByType(ctx, req, groupType, orgID, body.toOptions(), body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, batchJSON(out))
}

// ServeNotifyStandaloneGroups handles POST /notify/groups/standalone.
func (h *Handler) ServeNotifyStandaloneGroups(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	var body struct {
		groupOptionsBody
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	out, err := h.Engine.NotifyStandaloneGroups(ctx, req, body.toOptions(), body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, batchJSON(out))
}

// ServeNotifyGroupsByCriteria handles POST /notify/groups/criteria.
func (h *Handler) ServeNotifyGroupsByCriteria(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	var body struct {
		Criteria struct {
			Visibility    string     `json:"visibility"`
			OwnerID       string     `json:"owner_id"`
			CreatedAfter  *time.Time `json:"created_after"`
			CreatedBefore *time.Time `json:"created_before"`
			MinMembers    *int       `json:"min_members"`
			MaxMembers    *int       `json:"max_members"`
		} `json:"criteria"`
		groupOptionsBody
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}

	crit := target.Criteria{
		Visibility:    body.Criteria.Visibility,
		CreatedAfter:  body.Criteria.CreatedAfter,
		CreatedBefore: body.Criteria.CreatedBefore,
		MinMembers:    body.Criteria.MinMembers,
		MaxMembers:    body.Criteria.MaxMembers,
	}
	if body.Criteria.OwnerID != "" {
		oid, err := primitive.ObjectIDFromHex(body.Criteria.OwnerID)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid criteria.owner_id")
			return
		}
		crit.OwnerID = &oid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	out, err := h.Engine.NotifyGroupsByCriteria(ctx, req, crit, body.toOptions(), body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, batchJSON(out))
}

// ServeNotifyOrganization handles POST /notify/org/{id}.
func (h *Handler) ServeNotifyOrganization(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		IncludeRoles []string `json:"include_roles"`
		ExcludeRoles []string `json:"exclude_roles"`
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	out, err := h.Engine.NotifyOrganization(ctx, req, orgID, body.IncludeRoles, body.ExcludeRoles, body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"organizationId": out.OrganizationID.Hex(),
		"totalMembers":   out.TotalMembers,
		"sent":           out.Sent,
		"failed":         failureIDs(out.Failures),
	})
}

// ServeNotifyOrgRole handles POST /notify/org/{id}/role/{role}.
func (h *Handler) ServeNotifyOrgRole(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}
	orgID, ok := pathID(w, r)
	if !ok {
		return
	}
	role := chi.URLParam(r, "role")

	var body payloadBody
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	out, err := h.Engine.NotifyOrgRole(ctx, req, orgID, role, body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"organizationId": out.OrganizationID.Hex(),
		"role":           out.Role,
		"totalMembers":   out.TotalMembers,
		"sent":           out.Sent,
		"failed":         failureIDs(out.Failures),
	})
}

// ServeNotifyChannel handles POST /notify/channel/{id}.
func (h *Handler) ServeNotifyChannel(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}
	channelID, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		ExcludeSender bool `json:"exclude_sender"`
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	out, err := h.Engine.NotifyChannel(ctx, req, channelID, body.ExcludeSender, body.toPayload())
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"channelId":    out.ChannelID.Hex(),
		"totalMembers": out.TotalMembers,
		"sent":         out.Sent,
		"failed":       failureIDs(out.Failures),
	})
}

// ServeNotifySystemRole handles POST /notify/system-role.
func (h *Handler) ServeNotifySystemRole(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	var body struct {
		Role          string `json:"role"`
		IncludeHigher bool   `json:"include_higher"`
		Severity      string `json:"severity"`
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}
	if body.Role == "" {
		respond.Error(w, http.StatusBadRequest, "role is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	out, err := h.Engine.NotifySystemRole(ctx, req, engine.SystemAlert{
		TargetRole:    body.Role,
		IncludeHigher: body.IncludeHigher,
		Severity:      body.Severity,
		Payload:       body.toPayload(),
	})
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"targetRole": out.TargetRole,
		"roles":      out.Roles,
		"totalUsers": out.TotalUsers,
		"sent":       out.Sent,
		"failed":     failureIDs(out.Failures),
	})
}

// ServeNotifyAllUsers handles POST /notify/all.
func (h *Handler) ServeNotifyAllUsers(w http.ResponseWriter, r *http.Request) {
	req, ok := requester(w, r)
	if !ok {
		return
	}

	var body struct {
		ExcludeInactive bool   `json:"exclude_inactive"`
		Severity        string `json:"severity"`
		payloadBody
	}
	if !decodeBody(w, r, &body) || !body.validate(w) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	out, err := h.Engine.NotifyAllUsers(ctx, req, engine.PlatformAlert{
		ExcludeInactive: body.ExcludeInactive,
		Severity:        body.Severity,
		Payload:         body.toPayload(),
	})
	if err != nil {
		respond.FromErr(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"batchId":    out.BatchID,
		"totalUsers": out.TotalUsers,
		"sent":       out.Sent,
		"failed":     failureIDs(out.Failures),
	})
}
