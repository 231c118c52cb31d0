// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusInvited   = "invited"
	StatusSuspended = "suspended"
)

// User is created on first authentication with the identity provider and
// mutated on profile edits and role/org changes. Users are never hard-deleted;
// deactivation flips Status instead.
//
// NOTE:
//   - Organization membership is not embedded on User; the org_memberships
//     collection is authoritative. OrganizationID only records the user's
//     single "active" organization, if any.
type User struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	AuthSubject string              `bson:"auth_subject" json:"auth_subject"` // provider-issued stable principal id
	Email       string              `bson:"email" json:"email"`
	FullName    string              `bson:"full_name" json:"full_name"`
	Role        string              `bson:"role" json:"role"` // user | manager | admin | superadmin
	Status      string              `bson:"status" json:"status"`
	OrgID       *primitive.ObjectID `bson:"organization_id,omitempty" json:"organization_id,omitempty"`

	Preferences Preferences `bson:"preferences,omitempty" json:"preferences"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidStatus reports whether s is one of the recognized user statuses.
func IsValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusInvited, StatusSuspended:
		return true
	}
	return false
}
