// internal/app/store/groupmembers/groupmemberstore.go
package groupmemberstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lgsf/teamhub/internal/domain/models"
)

// Store manages the group_members collection. One document per
// (group_id, user_id), enforced by a unique index; membership is never
// duplicated: removal suspends the document and re-adding reactivates it.
type Store struct {
	c     *mongo.Collection
	users *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("group_members"),
		users: db.Collection("users"),
	}
}

var errBadRole = errors.New(`role must be "owner"|"admin"|"moderator"|"member"`)

// AddResult reports what an Add actually did, so callers can maintain the
// group's cached member_count.
type AddResult struct {
	Created     bool // no prior document existed
	Reactivated bool // prior document existed with non-active status
}

// Add upserts the membership for (groupID, userID) and activates it. A
// suspended or pending document is reactivated in place; an active one is a
// no-op apart from the role update. The referenced user must exist.
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role string) (AddResult, error) {
	if !models.IsValidGroupRole(role) {
		return AddResult{}, errBadRole
	}
	if err := s.users.FindOne(ctx, bson.M{"_id": userID}).Err(); err != nil {
		return AddResult{}, err
	}

	now := time.Now().UTC()
	var before models.GroupMember
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{
			"$set":         bson.M{"role": role, "status": models.MemberActive, "updated_at": now},
			"$setOnInsert": bson.M{"joined_at": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.Before),
	).Decode(&before)

	if err == mongo.ErrNoDocuments {
		return AddResult{Created: true}, nil
	}
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{Reactivated: before.Status != models.MemberActive}, nil
}

// Remove suspends the membership instead of deleting it, preserving the
// (group, user) document for later reactivation. Reports whether an active
// membership was actually suspended.
func (s *Store) Remove(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID, "status": models.MemberActive},
		bson.M{"$set": bson.M{"status": models.MemberSuspended, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// Get returns the membership for (groupID, userID), or mongo.ErrNoDocuments.
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (*models.GroupMember, error) {
	var m models.GroupMember
	if err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// IsActiveMember reports whether userID has an active membership in groupID.
func (s *Store) IsActiveMember(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"status":   models.MemberActive,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListActiveByGroup returns the active memberships for a group.
func (s *Store) ListActiveByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMember, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID, "status": models.MemberActive})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var members []models.GroupMember
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// SetNotificationOverride sets or clears the member's notification override.
func (s *Store) SetNotificationOverride(ctx context.Context, groupID, userID primitive.ObjectID, o *models.NotificationOverride) error {
	update := bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}}
	if o != nil {
		update["$set"].(bson.M)["notification_override"] = o
	} else {
		update["$unset"] = bson.M{"notification_override": ""}
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"group_id": groupID, "user_id": userID}, update)
	return err
}

// CountActiveByGroup returns the number of active memberships in a group,
// for reconciling the cached member_count.
func (s *Store) CountActiveByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "status": models.MemberActive})
}
