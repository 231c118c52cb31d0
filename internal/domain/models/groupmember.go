// internal/domain/models/groupmember.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group member roles.
const (
	GroupRoleOwner     = "owner"
	GroupRoleAdmin     = "admin"
	GroupRoleModerator = "moderator"
	GroupRoleMember    = "member"
)

// Group member statuses.
const (
	MemberActive    = "active"
	MemberPending   = "pending"
	MemberSuspended = "suspended"
)

// GroupMember joins users to groups. Exactly one document per
// (group_id, user_id), enforced by a unique index; re-adding a suspended or
// removed member reactivates the existing document instead of inserting a
// second one.
type GroupMember struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role    string             `bson:"role" json:"role"`     // owner | admin | moderator | member
	Status  string             `bson:"status" json:"status"` // active | pending | suspended

	NotificationOverride *NotificationOverride `bson:"notification_override,omitempty" json:"notification_override,omitempty"`

	JoinedAt  time.Time `bson:"joined_at" json:"joined_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NotificationOverride is a per-member override of the group's notification
// defaults. Only a literal Enabled=false is an opt-out; absent means the
// group policy applies.
type NotificationOverride struct {
	Enabled *bool    `bson:"enabled,omitempty" json:"enabled,omitempty"`
	Types   []string `bson:"types,omitempty" json:"types,omitempty"`
}

// OptedOut reports an explicit member-level opt-out.
func (m *GroupMember) OptedOut() bool {
	return m.NotificationOverride != nil &&
		m.NotificationOverride.Enabled != nil &&
		!*m.NotificationOverride.Enabled
}

// IsValidGroupRole reports whether role is a recognized group member role.
func IsValidGroupRole(role string) bool {
	switch role {
	case GroupRoleOwner, GroupRoleAdmin, GroupRoleModerator, GroupRoleMember:
		return true
	}
	return false
}
