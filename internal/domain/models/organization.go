// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization plan tiers.
const (
	PlanFree       = "free"
	PlanTeam       = "team"
	PlanEnterprise = "enterprise"
)

// Organization is a tenant. Membership is stored in the org_memberships
// collection, never embedded here.
type Organization struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	Name    string             `bson:"name" json:"name"`
	OwnerID primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	Plan    string             `bson:"plan" json:"plan"`
	Status  string             `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Organization membership roles.
const (
	OrgRoleOwner  = "owner"
	OrgRoleAdmin  = "admin"
	OrgRoleMember = "member"
	OrgRoleViewer = "viewer"
)

// OrgMembership joins users to organizations. Exactly one document per
// (user_id, organization_id) pair, enforced by a unique index.
type OrgMembership struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrgID  primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	UserID primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role   string             `bson:"role" json:"role"` // owner | admin | member | viewer

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// IsValidOrgRole reports whether role is a recognized organization role.
func IsValidOrgRole(role string) bool {
	switch role {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember, OrgRoleViewer:
		return true
	}
	return false
}
