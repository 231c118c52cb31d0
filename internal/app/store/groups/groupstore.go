// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lgsf/teamhub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

var (
	errBadType       = errors.New(`type must be "standalone"|"organization"|"department"|"project"|"custom"`)
	errBadVisibility = errors.New(`visibility must be "public"|"private"|"organization"`)
)

// GetByID loads a group by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Create inserts a new group after validating enum fields.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	if !models.IsValidGroupType(g.Type) {
		return models.Group{}, errBadType
	}
	if g.Visibility == "" {
		g.Visibility = models.VisibilityPublic
	}
	if !models.IsValidVisibility(g.Visibility) {
		return models.Group{}, errBadVisibility
	}

	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.IsActive = true
	g.MemberCount = 0
	g.CreatedAt = now
	g.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// ListActiveByType returns active groups with the given type, optionally
// scoped to an organization.
func (s *Store) ListActiveByType(ctx context.Context, groupType string, orgID *primitive.ObjectID) ([]models.Group, error) {
	filter := bson.M{"type": groupType, "is_active": true}
	if orgID != nil {
		filter["organization_id"] = *orgID
	}
	return s.find(ctx, filter)
}

// ListActiveStandalone returns all active standalone groups.
func (s *Store) ListActiveStandalone(ctx context.Context) ([]models.Group, error) {
	return s.find(ctx, bson.M{"type": models.GroupStandalone, "is_active": true})
}

// ListActive returns every active group. Criteria-based targeting filters
// this set in memory; the collection is expected to stay small enough that
// an unindexed full scan is acceptable.
func (s *Store) ListActive(ctx context.Context) ([]models.Group, error) {
	return s.find(ctx, bson.M{"is_active": true})
}

// SetActive flips the is_active flag.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// AdjustMemberCount applies a delta to the cached member_count. The counter
// is a best-effort cache: concurrent joins can lose updates and nothing in
// the system treats the value as authoritative.
func (s *Store) AdjustMemberCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"member_count": delta},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// UpdateNotificationDefaults replaces the group-level notification policy.
func (s *Store) UpdateNotificationDefaults(ctx context.Context, id primitive.ObjectID, nd *models.NotificationDefaults) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"settings.notification_defaults": nd,
		"updated_at":                     time.Now().UTC(),
	}})
	return err
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
