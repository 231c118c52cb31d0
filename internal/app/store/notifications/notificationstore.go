// internal/app/store/notifications/notificationstore.go
package notificationstore

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

// DefaultPageSize is the notification list page size when the caller does
// not specify a limit.
const DefaultPageSize = 20

// Store manages the notifications collection. Records flow one way:
// created unread, optionally marked read once, eventually hard-deleted by
// their owner. Nothing ever flips a notification back to unread.
type Store struct {
	c     *mongo.Collection
	users *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("notifications"),
		users: db.Collection("users"),
	}
}

var (
	// ErrNotOwner is returned when a caller operates on a notification
	// they do not own.
	ErrNotOwner = errors.New("notification does not belong to this user")

	// ErrRecipientNotFound is returned when inserting a notification whose
	// recipient user does not exist.
	ErrRecipientNotFound = errors.New("notification recipient does not exist")
)

// Insert persists one notification after verifying the recipient exists.
// The recipient check and the insert are separate reads; a user deleted in
// between would still receive the record, which the design accepts (users
// are never hard-deleted).
func (s *Store) Insert(ctx context.Context, n models.Notification) (models.Notification, error) {
	err := s.users.FindOne(ctx, bson.M{"_id": n.UserID}).Err()
	if err == mongo.ErrNoDocuments {
		return models.Notification{}, ErrRecipientNotFound
	}
	if err != nil {
		return models.Notification{}, err
	}

	n.ID = primitive.NewObjectID()
	n.Read = false
	n.ReadAt = nil
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// ListOptions filters and pages a recipient's notification list.
type ListOptions struct {
	Limit      int
	Cursor     string // hex id of the last item of the previous page
	UnreadOnly bool
	Type       string
}

// Page is one page of a recipient's notifications, newest first.
type Page struct {
	Items      []models.Notification
	NextCursor string // empty when this is the last page
}

// ListByUser returns one page of the user's notifications ordered newest
// first. Pagination is keyset on _id (ObjectIDs are time-ordered): the
// cursor is the last returned id and the store fetches limit+1 documents to
// detect a further page without a count query.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, opts ListOptions) (Page, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}

	filter := bson.M{"user_id": userID}
	if opts.UnreadOnly {
		filter["read"] = false
	}
	if opts.Type != "" {
		filter["type"] = opts.Type
	}
	if opts.Cursor != "" {
		cursorID, err := primitive.ObjectIDFromHex(opts.Cursor)
		if err == nil {
			filter["_id"] = bson.M{"$lt": cursorID}
		}
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit + 1))

	cur, err := s.c.Find(ctx, filter, findOpts)
	if err != nil {
		return Page{}, err
	}
	defer cur.Close(ctx)

	var items []models.Notification
	if err := cur.All(ctx, &items); err != nil {
		return Page{}, err
	}

	page := Page{}
	if len(items) > limit {
		items = items[:limit]
		page.NextCursor = items[len(items)-1].ID.Hex()
	}
	page.Items = items
	return page, nil
}

// UnreadCount returns the number of unread notifications for a user.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "read": false})
}

// MarkRead marks one notification read. Fails with ErrNotOwner when the
// notification belongs to someone else and mongo.ErrNoDocuments when it does
// not exist. Idempotent: re-marking an already-read notification changes
// nothing, ReadAt included.
func (s *Store) MarkRead(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	var n models.Notification
	if err := s.c.FindOne(ctx, bson.M{"_id": notificationID}).Decode(&n); err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotOwner
	}
	if n.Read {
		return nil
	}

	now := time.Now().UTC()
	// read:false in the filter keeps a concurrent double-mark from
	// rewriting read_at.
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": notificationID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": now}},
	)
	return err
}

// MarkAllRead marks every unread notification owned by the user as read.
// Returns the number of documents modified.
func (s *Store) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete hard-deletes one notification after an ownership check.
func (s *Store) Delete(ctx context.Context, userID, notificationID primitive.ObjectID) error {
	var n models.Notification
	if err := s.c.FindOne(ctx, bson.M{"_id": notificationID}).Decode(&n); err != nil {
		return err
	}
	if n.UserID != userID {
		return ErrNotOwner
	}
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": notificationID})
	return err
}

// ClearAll hard-deletes every notification owned by the user. Returns the
// number deleted.
func (s *Store) ClearAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
