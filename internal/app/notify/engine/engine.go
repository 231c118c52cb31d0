// internal/app/notify/engine/engine.go

// Package engine turns a targeting request into persisted notification
// records: expand the scope through the target resolver, prune candidates
// with the eligibility rules, then fan the writes out across a worker pool.
//
// The resolve-filter-write pipeline is not transactional. Authorization and
// not-found checks happen before any write; after that the fan-out is
// best-effort, with per-candidate failures collected rather than raised.
// Concurrent overlapping requests deliver at-least-once per request; no
// deduplication key exists on the notification record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lgsf/teamhub/internal/app/notify/target"
	"github.com/lgsf/teamhub/internal/app/store/audit"
	notificationstore "github.com/lgsf/teamhub/internal/app/store/notifications"
	"github.com/lgsf/teamhub/internal/app/system/apperr"
	"github.com/lgsf/teamhub/internal/app/system/auditlog"
	"github.com/lgsf/teamhub/internal/app/system/roles"
	"github.com/lgsf/teamhub/internal/app/system/workers"
	"github.com/lgsf/teamhub/internal/domain/models"
)

// System alert severities. Critical bypasses all preference checks.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Engine executes targeting requests.
type Engine struct {
	resolver *target.Resolver
	notes    *notificationstore.Store
	auditLog *auditlog.Logger
	pool     *workers.Pool
	log      *zap.Logger
}

// New builds an Engine. The pool is shared; the engine does not own its
// lifecycle. Audit events go through the configured audit logger, so
// the audit_log_notify setting controls whether targeting requests are
// recorded.
func New(resolver *target.Resolver, notifications *notificationstore.Store, auditLog *auditlog.Logger, pool *workers.Pool, logger *zap.Logger) *Engine {
	return &Engine{
		resolver: resolver,
		notes:    notifications,
		auditLog: auditLog,
		pool:     pool,
		log:      logger,
	}
}

// ListOutcome reports an explicit-user-list delivery.
type ListOutcome struct {
	Requested int
	Resolved  int
	Sent      int
	Failures  []CandidateFailure
}

// GroupOutcome reports delivery to one group. TotalMembers counts the
// members that survived the eligibility rules, not the raw active
// membership.
type GroupOutcome struct {
	GroupID      primitive.ObjectID
	GroupName    string
	TotalMembers int
	Sent         int
	Failures     []CandidateFailure
}

// BatchOutcome reports a multi-group delivery: per-group outcomes for the
// groups that expanded, per-group errors for the ones that did not.
type BatchOutcome struct {
	BatchID     string
	TotalGroups int
	TotalSent   int
	Groups      []GroupOutcome
	Failed      []target.GroupError
}

// OrgOutcome reports delivery to an organization's membership.
type OrgOutcome struct {
	OrganizationID primitive.ObjectID
	Role           string // set when the request targeted one membership role
	TotalMembers   int
	Sent           int
	Failures       []CandidateFailure
}

// ChannelOutcome reports delivery to a channel's membership.
type ChannelOutcome struct {
	ChannelID    primitive.ObjectID
	TotalMembers int
	Sent         int
	Failures     []CandidateFailure
}

// TierOutcome reports a system-role alert. TotalUsers counts resolved
// candidates before preference filtering.
type TierOutcome struct {
	TargetRole string
	Roles      []string
	TotalUsers int
	Sent       int
	Failures   []CandidateFailure
}

// BroadcastOutcome reports a platform-wide alert. TotalUsers counts resolved
// candidates before preference filtering.
type BroadcastOutcome struct {
	BatchID    string
	TotalUsers int
	Sent       int
	Failures   []CandidateFailure
}

// SystemAlert is a role-tier alert request.
type SystemAlert struct {
	TargetRole    string
	IncludeHigher bool
	Severity      string // info | warning | critical; empty means info
	Payload       Payload
}

// PlatformAlert is an all-users broadcast request.
type PlatformAlert struct {
	ExcludeInactive bool
	Severity        string
	Payload         Payload
}

// NotifyUser creates one notification for one recipient. No eligibility
// filtering applies on the direct path.
func (e *Engine) NotifyUser(ctx context.Context, req target.Requester, userID primitive.ObjectID, p Payload) (*models.Notification, error) {
	n, err := e.notes.Insert(ctx, models.Notification{
		UserID:  userID,
		Type:    p.Type,
		Title:   p.Title,
		Message: p.Message,
		Data:    p.Data,
	})
	if errors.Is(err, notificationstore.ErrRecipientNotFound) {
		err = fmt.Errorf("recipient %s: %w", userID.Hex(), apperr.ErrNotFound)
	}
	e.recordAudit(ctx, req, audit.EventNotifyUsers, err, map[string]string{
		"recipient": userID.Hex(),
		"type":      p.Type,
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NotifyUsers creates one notification per listed recipient. Missing ids
// are dropped silently; surviving recipients get a record unconditionally.
func (e *Engine) NotifyUsers(ctx context.Context, req target.Requester, userIDs []primitive.ObjectID, p Payload) (*ListOutcome, error) {
	candidates, err := e.resolver.ResolveUsers(ctx, userIDs)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifyUsers, err, nil)
		return nil, err
	}

	sent, failures := e.fanOut(ctx, candidates, p, nil)
	out := &ListOutcome{
		Requested: len(userIDs),
		Resolved:  len(candidates),
		Sent:      sent,
		Failures:  failures,
	}
	e.recordAudit(ctx, req, audit.EventNotifyUsers, nil, map[string]string{
		"requested": strconv.Itoa(out.Requested),
		"resolved":  strconv.Itoa(out.Resolved),
		"sent":      strconv.Itoa(out.Sent),
		"type":      p.Type,
	})
	return out, nil
}

// NotifyGroup delivers to one group's eligible active members. The group
// must exist and be active; non-public groups require the requester to be an
// active member.
func (e *Engine) NotifyGroup(ctx context.Context, req target.Requester, groupID primitive.ObjectID, opts target.GroupOptions, p Payload) (*GroupOutcome, error) {
	res, err := e.resolver.ResolveGroup(ctx, req, groupID, opts)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifyGroup, err, map[string]string{"group_id": groupID.Hex()})
		return nil, err
	}

	out := e.deliverGroup(ctx, res, p, nil)
	e.recordAudit(ctx, req, audit.EventNotifyGroup, nil, map[string]string{
		"group_id": out.GroupID.Hex(),
		"eligible": strconv.Itoa(out.TotalMembers),
		"sent":     strconv.Itoa(out.Sent),
		"type":     p.Type,
	})
	return &out, nil
}

// NotifyGroups delivers to several groups independently. Per-group failures
// are reported inline, never fatal to the batch. Unlike NotifyGroup, no
// sender-membership check applies here.
func (e *Engine) NotifyGroups(ctx context.Context, req target.Requester, groupIDs []primitive.ObjectID, opts target.GroupOptions, p Payload) (*BatchOutcome, error) {
	resolved, failed := e.resolver.ResolveGroups(ctx, req, groupIDs, opts)
	out := e.deliverBatch(ctx, resolved, failed, p, map[string]any{
		"multiGroupNotification": true,
	})
	e.recordAudit(ctx, req, audit.EventNotifyGroups, nil, batchAuditDetails(out, p))
	return out, nil
}

// NotifyGroupsByType delivers to every active group of the given type,
// optionally scoped to one organization.
func (e *Engine) NotifyGroupsByType(ctx context.Context, req target.Requester, groupType string, orgID *primitive.ObjectID, opts target.GroupOptions, p Payload) (*BatchOutcome, error) {
	resolved, err := e.resolver.ResolveGroupsByType(ctx, req, groupType, orgID, opts)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifyGroupsByType, err, map[string]string{"group_type": groupType})
		return nil, err
	}

	out := e.deliverBatch(ctx, resolved, nil, p, map[string]any{
		"multiGroupNotification": true,
		"groupType":              groupType,
	})
	e.recordAudit(ctx, req, audit.EventNotifyGroupsByType, nil, batchAuditDetails(out, p))
	return out, nil
}

// NotifyStandaloneGroups delivers to every active standalone group.
// Requires at least the admin tier.
func (e *Engine) NotifyStandaloneGroups(ctx context.Context, req target.Requester, opts target.GroupOptions, p Payload) (*BatchOutcome, error) {
	resolved, err := e.resolver.ResolveStandaloneGroups(ctx, req, opts)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifyGroups, err, nil)
		return nil, err
	}

	out := e.deliverBatch(ctx, resolved, nil, p, map[string]any{
		"multiGroupNotification": true,
		"groupType":              models.GroupStandalone,
	})
	e.recordAudit(ctx, req, audit.EventNotifyGroups, nil, batchAuditDetails(out, p))
	return out, nil
}

// NotifyGroupsByCriteria delivers to the active groups matching the
// criteria. The group set is filtered in memory; member-count bounds use the
// cached member_count.
func (e *Engine) NotifyGroupsByCriteria(ctx context.Context, req target.Requester, crit target.Criteria, opts target.GroupOptions, p Payload) (*BatchOutcome, error) {
	resolved, err := e.resolver.ResolveGroupsByCriteria(ctx, req, crit, opts)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifyByCriteria, err, nil)
		return nil, err
	}

	out := e.deliverBatch(ctx, resolved, nil, p, map[string]any{
		"multiGroupNotification": true,
		"criteriaNotification":   true,
	})
	e.recordAudit(ctx, req, audit.EventNotifyByCriteria, nil, batchAuditDetails(out, p))
	return out, nil
}

// NotifyOrganization delivers to an organization's membership, optionally
// filtered by role. The org and channel paths carry no per-user preference
// check; the recipient-exists check at insert time is the only gate.
func (e *Engine) NotifyOrganization(ctx context.Context, req target.Requester, orgID primitive.ObjectID, includeRoles, excludeRoles []string, p Payload) (*OrgOutcome, error) {
	candidates, err := e.resolver.ResolveOrganization(ctx, orgID, includeRoles, excludeRoles)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifyOrganization, err, map[string]string{"organization_id": orgID.Hex()})
		return nil, err
	}

	sent, failures := e.fanOut(ctx, candidates, p, map[string]any{
		"organizationId":     orgID.Hex(),
		"sentToOrganization": true,
	})
	out := &OrgOutcome{
		OrganizationID: orgID,
		TotalMembers:   len(candidates),
		Sent:           sent,
		Failures:       failures,
	}
	e.recordAudit(ctx, req, audit.EventNotifyOrganization, nil, map[string]string{
		"organization_id": orgID.Hex(),
		"members":         strconv.Itoa(out.TotalMembers),
		"sent":            strconv.Itoa(out.Sent),
		"type":            p.Type,
	})
	return out, nil
}

// NotifyOrgRole delivers to the members of an organization holding exactly
// the given membership role.
func (e *Engine) NotifyOrgRole(ctx context.Context, req target.Requester, orgID primitive.ObjectID, role string, p Payload) (*OrgOutcome, error) {
	candidates, err := e.resolver.ResolveOrgRole(ctx, orgID, role)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifyOrganization, err, map[string]string{"organization_id": orgID.Hex(), "role": role})
		return nil, err
	}

	sent, failures := e.fanOut(ctx, candidates, p, map[string]any{
		"organizationId":     orgID.Hex(),
		"sentToOrganization": true,
		"sentToRole":         role,
	})
	out := &OrgOutcome{
		OrganizationID: orgID,
		Role:           role,
		TotalMembers:   len(candidates),
		Sent:           sent,
		Failures:       failures,
	}
	e.recordAudit(ctx, req, audit.EventNotifyOrganization, nil, map[string]string{
		"organization_id": orgID.Hex(),
		"role":            role,
		"members":         strconv.Itoa(out.TotalMembers),
		"sent":            strconv.Itoa(out.Sent),
		"type":            p.Type,
	})
	return out, nil
}

// NotifyChannel delivers to a channel's membership, optionally excluding
// the sender.
func (e *Engine) NotifyChannel(ctx context.Context, req target.Requester, channelID primitive.ObjectID, excludeSender bool, p Payload) (*ChannelOutcome, error) {
	var exclude *primitive.ObjectID
	if excludeSender {
		exclude = &req.UserID
	}
	candidates, err := e.resolver.ResolveChannel(ctx, channelID, exclude)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifyChannel, err, map[string]string{"channel_id": channelID.Hex()})
		return nil, err
	}

	sent, failures := e.fanOut(ctx, candidates, p, map[string]any{
		"channelId":     channelID.Hex(),
		"sentToChannel": true,
	})
	out := &ChannelOutcome{
		ChannelID:    channelID,
		TotalMembers: len(candidates),
		Sent:         sent,
		Failures:     failures,
	}
	e.recordAudit(ctx, req, audit.EventNotifyChannel, nil, map[string]string{
		"channel_id": channelID.Hex(),
		"members":    strconv.Itoa(out.TotalMembers),
		"sent":       strconv.Itoa(out.Sent),
		"type":       p.Type,
	})
	return out, nil
}

// NotifySystemRole delivers a system alert to every active user in the
// target role tier, optionally widened to all higher tiers. A critical
// severity bypasses preference checks entirely; anything else honors an
// explicit master-switch opt-out.
func (e *Engine) NotifySystemRole(ctx context.Context, req target.Requester, alert SystemAlert) (*TierOutcome, error) {
	severity := alert.Severity
	if severity == "" {
		severity = SeverityInfo
	}

	candidates, err := e.resolver.ResolveSystemRole(ctx, alert.TargetRole, alert.IncludeHigher)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifySystemRole, err, map[string]string{"target_role": alert.TargetRole})
		return nil, err
	}

	roleSet := []string{alert.TargetRole}
	if alert.IncludeHigher {
		roleSet = roles.From(alert.TargetRole)
	}
	bypass := severity == SeverityCritical

	eligible := make([]target.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if alertEligible(c, bypass) {
			eligible = append(eligible, c)
		}
	}

	sent, failures := e.fanOut(ctx, eligible, alert.Payload, map[string]any{
		"systemNotification":  true,
		"sentToRole":          alert.TargetRole,
		"includesHigherRoles": alert.IncludeHigher,
		"severity":            severity,
		"bypassPreferences":   bypass,
	})
	out := &TierOutcome{
		TargetRole: alert.TargetRole,
		Roles:      roleSet,
		TotalUsers: len(candidates),
		Sent:       sent,
		Failures:   failures,
	}
	e.recordAudit(ctx, req, audit.EventNotifySystemRole, nil, map[string]string{
		"target_role": alert.TargetRole,
		"severity":    severity,
		"users":       strconv.Itoa(out.TotalUsers),
		"sent":        strconv.Itoa(out.Sent),
		"type":        alert.Payload.Type,
	})
	return out, nil
}

// NotifyAllUsers delivers a platform broadcast. Superadmin only. The same
// critical-severity bypass as NotifySystemRole applies.
func (e *Engine) NotifyAllUsers(ctx context.Context, req target.Requester, alert PlatformAlert) (*BroadcastOutcome, error) {
	severity := alert.Severity
	if severity == "" {
		severity = SeverityInfo
	}

	candidates, err := e.resolver.ResolveAllUsers(ctx, req, alert.ExcludeInactive)
	if err != nil {
		e.recordAudit(ctx, req, audit.EventNotifyAllUsers, err, nil)
		return nil, err
	}

	bypass := severity == SeverityCritical
	eligible := make([]target.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if alertEligible(c, bypass) {
			eligible = append(eligible, c)
		}
	}

	batchID := uuid.NewString()
	sent, failures := e.fanOut(ctx, eligible, alert.Payload, map[string]any{
		"systemNotification":   true,
		"platformAnnouncement": true,
		"severity":             severity,
		"bypassPreferences":    bypass,
		"batchId":              batchID,
	})
	out := &BroadcastOutcome{
		BatchID:    batchID,
		TotalUsers: len(candidates),
		Sent:       sent,
		Failures:   failures,
	}
	e.recordAudit(ctx, req, audit.EventNotifyAllUsers, nil, map[string]string{
		"severity": severity,
		"users":    strconv.Itoa(out.TotalUsers),
		"sent":     strconv.Itoa(out.Sent),
		"type":     alert.Payload.Type,
	})
	return out, nil
}

// deliverGroup filters one resolved group through the eligibility rules and
// fans out to the survivors. extra is merged into the group provenance tags.
func (e *Engine) deliverGroup(ctx context.Context, res *target.GroupResolution, p Payload, extra map[string]any) GroupOutcome {
	eligible := make([]target.Candidate, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		if groupEligible(&res.Group, c) {
			eligible = append(eligible, c)
		}
	}

	provenance := map[string]any{
		"groupId":     res.Group.ID.Hex(),
		"groupName":   res.Group.Name,
		"sentToGroup": true,
	}
	for k, v := range extra {
		provenance[k] = v
	}

	sent, failures := e.fanOut(ctx, eligible, p, provenance)
	return GroupOutcome{
		GroupID:      res.Group.ID,
		GroupName:    res.Group.Name,
		TotalMembers: len(eligible),
		Sent:         sent,
		Failures:     failures,
	}
}

// deliverBatch runs deliverGroup over each resolved group under one batch
// id. Failed resolutions pass straight through to the outcome.
func (e *Engine) deliverBatch(ctx context.Context, resolved []target.GroupResolution, failed []target.GroupError, p Payload, extra map[string]any) *BatchOutcome {
	batchID := uuid.NewString()
	tags := map[string]any{"batchId": batchID}
	for k, v := range extra {
		tags[k] = v
	}

	out := &BatchOutcome{
		BatchID:     batchID,
		TotalGroups: len(resolved) + len(failed),
		Failed:      failed,
	}
	for i := range resolved {
		g := e.deliverGroup(ctx, &resolved[i], p, tags)
		out.Groups = append(out.Groups, g)
		out.TotalSent += g.Sent
	}
	return out
}

func batchAuditDetails(out *BatchOutcome, p Payload) map[string]string {
	return map[string]string{
		"batch_id":      out.BatchID,
		"groups":        strconv.Itoa(out.TotalGroups),
		"failed_groups": strconv.Itoa(len(out.Failed)),
		"sent":          strconv.Itoa(out.TotalSent),
		"type":          p.Type,
	}
}

// recordAudit records the targeting request through the audit logger,
// which applies the notify-category config and swallows store failures;
// auditing never fails the operation.
func (e *Engine) recordAudit(ctx context.Context, req target.Requester, eventType string, opErr error, details map[string]string) {
	actor := req.UserID
	ev := audit.Event{
		Category:  audit.CategoryNotify,
		EventType: eventType,
		ActorID:   &actor,
		Success:   opErr == nil,
		Details:   details,
	}
	if opErr != nil {
		ev.FailureReason = opErr.Error()
	}
	e.auditLog.Log(ctx, ev)
}
