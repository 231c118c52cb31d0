// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lgsf/teamhub/internal/domain/models"
)

// Store manages the org_memberships collection: the authoritative join
// between users and organizations, one document per (user, organization).
type Store struct {
	c     *mongo.Collection
	users *mongo.Collection
	orgs  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("org_memberships"),
		users: db.Collection("users"),
		orgs:  db.Collection("organizations"),
	}
}

var (
	errBadRole = errors.New(`role must be "owner"|"admin"|"member"|"viewer"`)

	// ErrDuplicateMembership is returned when the (user, org) pair already
	// has a membership document.
	ErrDuplicateMembership = errors.New("user is already a member of this organization")
)

// Add creates a membership after verifying both referenced documents exist.
func (s *Store) Add(ctx context.Context, orgID, userID primitive.ObjectID, role string) error {
	if !models.IsValidOrgRole(role) {
		return errBadRole
	}

	if err := s.orgs.FindOne(ctx, bson.M{"_id": orgID}).Err(); err != nil {
		return err
	}
	if err := s.users.FindOne(ctx, bson.M{"_id": userID}).Err(); err != nil {
		return err
	}

	doc := models.OrgMembership{
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// Remove deletes the membership document for (orgID, userID).
func (s *Store) Remove(ctx context.Context, orgID, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"organization_id": orgID, "user_id": userID})
	return err
}

// ListByOrg returns all memberships for an organization. Role filtering is
// the caller's concern: targeting applies include-only or exclusion lists
// with their own precedence rules.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.OrgMembership, error) {
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.OrgMembership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListByOrgRole returns memberships for an organization with the exact role.
func (s *Store) ListByOrgRole(ctx context.Context, orgID primitive.ObjectID, role string) ([]models.OrgMembership, error) {
	cur, err := s.c.Find(ctx, bson.M{"organization_id": orgID, "role": role})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.OrgMembership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// Get returns the membership for (orgID, userID), or mongo.ErrNoDocuments.
func (s *Store) Get(ctx context.Context, orgID, userID primitive.ObjectID) (*models.OrgMembership, error) {
	var m models.OrgMembership
	if err := s.c.FindOne(ctx, bson.M{"organization_id": orgID, "user_id": userID}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CountByOrg returns the count of memberships for an organization.
func (s *Store) CountByOrg(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"organization_id": orgID})
}
