// internal/app/notify/target/target.go

// Package target expands a targeting scope into the concrete set of
// candidate recipients. Each scope variant is its own Resolve method; all of
// them deduplicate by user id within one expansion and attach the contextual
// metadata the fan-out writer needs (membership role, group, source user
// document).
//
// Resolution never writes. Authorization and existence failures surface as
// wrapped apperr sentinels before any caller-side mutation can happen.
package target

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	channelstore "github.com/lgsf/teamhub/internal/app/store/channels"
	groupmemberstore "github.com/lgsf/teamhub/internal/app/store/groupmembers"
	groupstore "github.com/lgsf/teamhub/internal/app/store/groups"
	membershipstore "github.com/lgsf/teamhub/internal/app/store/memberships"
	orgstore "github.com/lgsf/teamhub/internal/app/store/organizations"
	userstore "github.com/lgsf/teamhub/internal/app/store/users"
	"github.com/lgsf/teamhub/internal/app/system/apperr"
	"github.com/lgsf/teamhub/internal/app/system/roles"
	"github.com/lgsf/teamhub/internal/domain/models"
)

// Requester identifies the principal issuing a targeting request. Scope
// variants with authorization rules check it before expanding.
type Requester struct {
	UserID primitive.ObjectID
	Role   string
}

// Candidate is one user produced by scope expansion, with whatever context
// the expansion had in hand. User is populated by the scopes that load user
// documents (explicit lists, role tiers, broadcasts); Member by the group
// scopes.
type Candidate struct {
	UserID primitive.ObjectID
	Role   string // membership role within the scope, when applicable

	User   *models.User
	Member *models.GroupMember
}

// GroupResolution pairs an expanded group with its candidates so the
// eligibility filter can consult the group's notification defaults without a
// second load.
type GroupResolution struct {
	Group      models.Group
	Candidates []Candidate
}

// GroupError reports a per-group failure inside a multi-group expansion.
type GroupError struct {
	GroupID primitive.ObjectID
	Err     error
}

// GroupOptions tune group-scope expansion.
type GroupOptions struct {
	ExcludeSender bool
	ExcludedRoles []string
}

// Criteria filters the active-group set for criteria-based targeting. All
// fields are optional; member-count bounds compare against the group's
// cached member_count, not a live recount.
type Criteria struct {
	Visibility    string
	OwnerID       *primitive.ObjectID
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	MinMembers    *int
	MaxMembers    *int
}

// Resolver expands targeting scopes against the document store.
type Resolver struct {
	users    *userstore.Store
	orgDocs  *orgstore.Store
	orgs     *membershipstore.Store
	groups   *groupstore.Store
	members  *groupmemberstore.Store
	channels *channelstore.Store
}

// NewResolver builds a Resolver over the given stores.
func NewResolver(users *userstore.Store, orgs *orgstore.Store, orgMemberships *membershipstore.Store, groups *groupstore.Store, groupMembers *groupmemberstore.Store, channels *channelstore.Store) *Resolver {
	return &Resolver{
		users:    users,
		orgDocs:  orgs,
		orgs:     orgMemberships,
		groups:   groups,
		members:  groupMembers,
		channels: channels,
	}
}

// ResolveUsers expands an explicit user-id list. Missing ids are dropped
// silently; surviving candidates keep input order.
func (r *Resolver) ResolveUsers(ctx context.Context, ids []primitive.ObjectID) ([]Candidate, error) {
	users, err := r.users.GetByIDs(ctx, dedupIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(users))
	for i := range users {
		out = append(out, Candidate{UserID: users[i].ID, User: &users[i]})
	}
	return out, nil
}

// ResolveOrganization expands an organization's membership, optionally
// filtered by role. includeRoles and excludeRoles are mutually exclusive in
// intent; when both are given, includeRoles takes precedence and
// excludeRoles is ignored.
func (r *Resolver) ResolveOrganization(ctx context.Context, orgID primitive.ObjectID, includeRoles, excludeRoles []string) ([]Candidate, error) {
	if err := r.requireOrg(ctx, orgID); err != nil {
		return nil, err
	}
	memberships, err := r.orgs.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	var keep func(role string) bool
	switch {
	case len(includeRoles) > 0:
		include := toSet(includeRoles)
		keep = func(role string) bool { return include[role] }
	case len(excludeRoles) > 0:
		exclude := toSet(excludeRoles)
		keep = func(role string) bool { return !exclude[role] }
	default:
		keep = func(string) bool { return true }
	}

	seen := make(map[primitive.ObjectID]bool, len(memberships))
	out := make([]Candidate, 0, len(memberships))
	for _, m := range memberships {
		if !keep(m.Role) || seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		out = append(out, Candidate{UserID: m.UserID, Role: m.Role})
	}
	return out, nil
}

// ResolveOrgRole expands the members of an organization holding exactly the
// given membership role.
func (r *Resolver) ResolveOrgRole(ctx context.Context, orgID primitive.ObjectID, role string) ([]Candidate, error) {
	if err := r.requireOrg(ctx, orgID); err != nil {
		return nil, err
	}
	memberships, err := r.orgs.ListByOrgRole(ctx, orgID, role)
	if err != nil {
		return nil, err
	}
	seen := make(map[primitive.ObjectID]bool, len(memberships))
	out := make([]Candidate, 0, len(memberships))
	for _, m := range memberships {
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		out = append(out, Candidate{UserID: m.UserID, Role: m.Role})
	}
	return out, nil
}

// ResolveChannel expands a channel's membership, optionally excluding the
// sender.
func (r *Resolver) ResolveChannel(ctx context.Context, channelID primitive.ObjectID, exclude *primitive.ObjectID) ([]Candidate, error) {
	if _, err := r.channels.GetByID(ctx, channelID); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("channel %s: %w", channelID.Hex(), apperr.ErrNotFound)
		}
		return nil, err
	}

	members, err := r.channels.ListMembers(ctx, channelID)
	if err != nil {
		return nil, err
	}
	seen := make(map[primitive.ObjectID]bool, len(members))
	out := make([]Candidate, 0, len(members))
	for _, m := range members {
		if exclude != nil && m.UserID == *exclude {
			continue
		}
		if seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		out = append(out, Candidate{UserID: m.UserID, Role: m.Role})
	}
	return out, nil
}

// ResolveGroup expands a single group. The group must exist and be active.
// For non-public groups the requester must be an active member; the batch
// multi-group path deliberately skips that check (see ResolveGroups).
func (r *Resolver) ResolveGroup(ctx context.Context, req Requester, groupID primitive.ObjectID, opts GroupOptions) (*GroupResolution, error) {
	g, err := r.activeGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if g.Visibility != models.VisibilityPublic {
		ok, err := r.members.IsActiveMember(ctx, groupID, req.UserID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("group %s is not public and requester is not an active member: %w", groupID.Hex(), apperr.ErrUnauthorized)
		}
	}

	return r.expandGroup(ctx, req, g, opts)
}

// ResolveGroups expands several groups independently. Per-group failures
// are collected and returned alongside the successful resolutions instead of
// failing the batch. No sender-membership check is applied here, unlike
// ResolveGroup.
func (r *Resolver) ResolveGroups(ctx context.Context, req Requester, groupIDs []primitive.ObjectID, opts GroupOptions) ([]GroupResolution, []GroupError) {
	var resolved []GroupResolution
	var failed []GroupError
	for _, id := range dedupIDs(groupIDs) {
		g, err := r.activeGroup(ctx, id)
		if err != nil {
			failed = append(failed, GroupError{GroupID: id, Err: err})
			continue
		}
		res, err := r.expandGroup(ctx, req, g, opts)
		if err != nil {
			failed = append(failed, GroupError{GroupID: id, Err: err})
			continue
		}
		resolved = append(resolved, *res)
	}
	return resolved, failed
}

// ResolveGroupsByType expands every active group of the given type,
// optionally scoped to one organization. Candidates are not deduplicated
// across groups: a user in two matching groups appears once per group.
func (r *Resolver) ResolveGroupsByType(ctx context.Context, req Requester, groupType string, orgID *primitive.ObjectID, opts GroupOptions) ([]GroupResolution, error) {
	groups, err := r.groups.ListActiveByType(ctx, groupType, orgID)
	if err != nil {
		return nil, err
	}
	return r.expandGroups(ctx, req, groups, opts)
}

// ResolveStandaloneGroups expands every active standalone group. Requires
// the requester to hold at least the admin tier.
func (r *Resolver) ResolveStandaloneGroups(ctx context.Context, req Requester, opts GroupOptions) ([]GroupResolution, error) {
	if !roles.AtLeast(req.Role, roles.Admin) {
		return nil, fmt.Errorf("standalone-group broadcast requires admin: %w", apperr.ErrUnauthorized)
	}
	groups, err := r.groups.ListActiveStandalone(ctx)
	if err != nil {
		return nil, err
	}
	return r.expandGroups(ctx, req, groups, opts)
}

// ResolveGroupsByCriteria filters the full active-group set in memory and
// expands the survivors. The scan is O(groups) and unindexed;
// member-count bounds use the cached member_count.
func (r *Resolver) ResolveGroupsByCriteria(ctx context.Context, req Requester, crit Criteria, opts GroupOptions) ([]GroupResolution, error) {
	groups, err := r.groups.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	matched := groups[:0]
	for _, g := range groups {
		if crit.Matches(g) {
			matched = append(matched, g)
		}
	}
	return r.expandGroups(ctx, req, matched, opts)
}

// Matches reports whether g satisfies every set field of the criteria.
func (c Criteria) Matches(g models.Group) bool {
	if c.Visibility != "" && g.Visibility != c.Visibility {
		return false
	}
	if c.OwnerID != nil && g.OwnerID != *c.OwnerID {
		return false
	}
	if c.CreatedAfter != nil && g.CreatedAt.Before(*c.CreatedAfter) {
		return false
	}
	if c.CreatedBefore != nil && g.CreatedAt.After(*c.CreatedBefore) {
		return false
	}
	if c.MinMembers != nil && g.MemberCount < *c.MinMembers {
		return false
	}
	if c.MaxMembers != nil && g.MemberCount > *c.MaxMembers {
		return false
	}
	return true
}

// ResolveSystemRole expands all active users in the target role tier,
// optionally widened to every higher tier.
func (r *Resolver) ResolveSystemRole(ctx context.Context, targetRole string, includeHigher bool) ([]Candidate, error) {
	if !roles.IsValid(targetRole) {
		return nil, fmt.Errorf("unknown system role %q: %w", targetRole, apperr.ErrNotFound)
	}
	roleSet := []string{targetRole}
	if includeHigher {
		roleSet = roles.From(targetRole)
	}

	users, err := r.users.ListActiveByRoles(ctx, roleSet)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(users))
	for i := range users {
		out = append(out, Candidate{UserID: users[i].ID, Role: users[i].Role, User: &users[i]})
	}
	return out, nil
}

// ResolveAllUsers expands the whole platform. Superadmin only.
func (r *Resolver) ResolveAllUsers(ctx context.Context, req Requester, excludeInactive bool) ([]Candidate, error) {
	if req.Role != roles.SuperAdmin {
		return nil, fmt.Errorf("platform broadcast requires superadmin: %w", apperr.ErrUnauthorized)
	}
	users, err := r.users.ListAll(ctx, excludeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(users))
	for i := range users {
		out = append(out, Candidate{UserID: users[i].ID, Role: users[i].Role, User: &users[i]})
	}
	return out, nil
}

func (r *Resolver) requireOrg(ctx context.Context, orgID primitive.ObjectID) error {
	ok, err := r.orgDocs.Exists(ctx, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("organization %s: %w", orgID.Hex(), apperr.ErrNotFound)
	}
	return nil
}

func (r *Resolver) activeGroup(ctx context.Context, groupID primitive.ObjectID) (*models.Group, error) {
	g, err := r.groups.GetByID(ctx, groupID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("group %s: %w", groupID.Hex(), apperr.ErrNotFound)
		}
		return nil, err
	}
	if !g.IsActive {
		return nil, fmt.Errorf("group %s is inactive: %w", groupID.Hex(), apperr.ErrNotFound)
	}
	return g, nil
}

// expandGroup lists a group's active members and applies the role and
// sender exclusions. It assumes authorization has already been settled.
func (r *Resolver) expandGroup(ctx context.Context, req Requester, g *models.Group, opts GroupOptions) (*GroupResolution, error) {
	members, err := r.members.ListActiveByGroup(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	excluded := toSet(opts.ExcludedRoles)
	seen := make(map[primitive.ObjectID]bool, len(members))
	out := make([]Candidate, 0, len(members))
	for i := range members {
		m := members[i]
		if opts.ExcludeSender && m.UserID == req.UserID {
			continue
		}
		if excluded[m.Role] || seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		out = append(out, Candidate{UserID: m.UserID, Role: m.Role, Member: &members[i]})
	}
	return &GroupResolution{Group: *g, Candidates: out}, nil
}

func (r *Resolver) expandGroups(ctx context.Context, req Requester, groups []models.Group, opts GroupOptions) ([]GroupResolution, error) {
	out := make([]GroupResolution, 0, len(groups))
	for i := range groups {
		res, err := r.expandGroup(ctx, req, &groups[i], opts)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

func dedupIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func toSet(ss []string) map[string]bool {
	set := make(map[string]bool, len(ss))
	for _, s := range ss {
		set[s] = true
	}
	return set
}
