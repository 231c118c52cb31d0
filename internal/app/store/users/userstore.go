// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lgsf/teamhub/internal/app/system/normalize"
	"github.com/lgsf/teamhub/internal/app/system/roles"
	"github.com/lgsf/teamhub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateSubject is returned when a user with the same provider
	// subject already exists.
	ErrDuplicateSubject = errors.New("a user with this auth subject already exists")
	errBadRole          = errors.New(`role must be "user"|"manager"|"admin"|"superadmin"`)
	errBadStatus        = errors.New(`status must be "active"|"inactive"|"invited"|"suspended"`)
)

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByAuthSubject loads a user by the identity provider's stable subject id.
// Returns mongo.ErrNoDocuments if no such user exists.
func (s *Store) GetByAuthSubject(ctx context.Context, subject string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"auth_subject": subject}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads the users for the given ids, in input order. Missing ids are
// dropped silently, which is the contract for explicit-user-list targeting.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	byID := make(map[primitive.ObjectID]models.User, len(ids))
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		byID[u.ID] = u
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	out := make([]models.User, 0, len(byID))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// ListActiveByRoles returns all active-status users whose role is in the
// given set. Used by system-role-tier targeting.
func (s *Store) ListActiveByRoles(ctx context.Context, roleSet []string) ([]models.User, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"role":   bson.M{"$in": roleSet},
		"status": models.StatusActive,
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListAll returns every user, optionally restricted to active status.
// Platform-broadcast targeting only; callers gate on superadmin first.
func (s *Store) ListAll(ctx context.Context, activeOnly bool) ([]models.User, error) {
	filter := bson.M{}
	if activeOnly {
		filter["status"] = models.StatusActive
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Create inserts a new user after normalizing and validating fields. The
// notification preference bundle is always persisted fully populated so the
// documented defaults are explicit on the document.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.Email = normalize.Email(u.Email)
	u.FullName = normalize.Name(u.FullName)
	if u.Role == "" {
		u.Role = roles.User
	}
	if u.Status == "" {
		u.Status = models.StatusActive
	}

	if !roles.IsValid(u.Role) {
		return models.User{}, errBadRole
	}
	if !models.IsValidStatus(u.Status) {
		return models.User{}, errBadStatus
	}

	if u.Preferences.Notifications.Enabled == nil {
		u.Preferences.Notifications = models.DefaultNotificationPreferences()
	}
	u.Preferences.Notifications.Normalize()

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateSubject
		}
		return models.User{}, err
	}
	return u, nil
}

// UpdateProfile updates the mutable profile fields.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, fullName, email string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"full_name":  normalize.Name(fullName),
		"email":      normalize.Email(email),
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// ClaimSubject binds the identity provider's subject id to an account
// that was provisioned by email (e.g. the bootstrapped superadmin).
func (s *Store) ClaimSubject(ctx context.Context, id primitive.ObjectID, subject string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"auth_subject": subject,
		"updated_at":   time.Now().UTC(),
	}})
	if wafflemongo.IsDup(err) {
		return ErrDuplicateSubject
	}
	return err
}

// SetRole changes a user's system role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	if !roles.IsValid(role) {
		return errBadRole
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"role":       role,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// SetStatus changes a user's status. Users are never hard-deleted; this is
// the only way to take one out of circulation.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	if !models.IsValidStatus(status) {
		return errBadStatus
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// UpdateNotificationPreferences shallow-merges upd into the stored bundle and
// persists the result. email.security can never be unset: Merge normalizes it
// back to true whatever the caller sent. Returns the persisted bundle.
func (s *Store) UpdateNotificationPreferences(ctx context.Context, id primitive.ObjectID, upd models.NotificationPreferences) (models.NotificationPreferences, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return models.NotificationPreferences{}, err
	}

	current := u.Preferences.Notifications
	if current.Enabled == nil {
		current = models.DefaultNotificationPreferences()
	}
	merged := current.Merge(upd)

	_, err = s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"preferences.notifications": merged,
		"updated_at":                time.Now().UTC(),
	}})
	if err != nil {
		return models.NotificationPreferences{}, err
	}
	return merged, nil
}

// Exists reports whether a user document with the given id exists.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
