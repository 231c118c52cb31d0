// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group types.
const (
	GroupStandalone   = "standalone"
	GroupOrganization = "organization"
	GroupDepartment   = "department"
	GroupProject      = "project"
	GroupCustom       = "custom"
)

// Group visibilities.
const (
	VisibilityPublic       = "public"
	VisibilityPrivate      = "private"
	VisibilityOrganization = "organization"
)

// Group is a notification-addressable collection of users. A nil OrgID marks
// a platform-wide (system) group.
//
// MemberCount is a denormalized cache maintained on join/leave. It can drift
// under concurrent joins and must not be treated as an exact count;
// criteria-based targeting filters on it as a best-effort bound.
// TODO: reconciliation sweep that recounts group_members per group.
type Group struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Name        string              `bson:"name" json:"name"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	Type        string              `bson:"type" json:"type"`
	OrgID       *primitive.ObjectID `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	OwnerID     primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	Visibility  string              `bson:"visibility" json:"visibility"`
	IsActive    bool                `bson:"is_active" json:"is_active"`
	MemberCount int                 `bson:"member_count" json:"member_count"`

	Settings GroupSettings `bson:"settings,omitempty" json:"settings"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// GroupSettings holds per-group configuration.
type GroupSettings struct {
	NotificationDefaults *NotificationDefaults `bson:"notification_defaults,omitempty" json:"notification_defaults,omitempty"`
}

// NotificationDefaults is the group-level notification policy. Enabled is a
// pointer because only a literal false opts the whole group out; absent means
// notifications flow.
type NotificationDefaults struct {
	Enabled *bool    `bson:"enabled,omitempty" json:"enabled,omitempty"`
	Types   []string `bson:"types,omitempty" json:"types,omitempty"`
}

// NotificationsDisabled reports an explicit group-level opt-out.
func (g *Group) NotificationsDisabled() bool {
	nd := g.Settings.NotificationDefaults
	return nd != nil && nd.Enabled != nil && !*nd.Enabled
}

// IsValidGroupType reports whether t is a recognized group type.
func IsValidGroupType(t string) bool {
	switch t {
	case GroupStandalone, GroupOrganization, GroupDepartment, GroupProject, GroupCustom:
		return true
	}
	return false
}

// IsValidVisibility reports whether v is a recognized group visibility.
func IsValidVisibility(v string) bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityOrganization:
		return true
	}
	return false
}
