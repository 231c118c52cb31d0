// internal/app/store/channels/channelstore.go
package channelstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lgsf/teamhub/internal/domain/models"
)

// Store manages the channels and channel_members collections.
type Store struct {
	c       *mongo.Collection
	members *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:       db.Collection("channels"),
		members: db.Collection("channel_members"),
	}
}

// GetByID loads a channel by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Channel, error) {
	var ch models.Channel
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// Create inserts a new channel.
func (s *Store) Create(ctx context.Context, ch models.Channel) (models.Channel, error) {
	now := time.Now().UTC()
	ch.ID = primitive.NewObjectID()
	ch.CreatedAt = now
	ch.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, ch); err != nil {
		return models.Channel{}, err
	}
	return ch, nil
}

// AddMember adds a user to a channel.
func (s *Store) AddMember(ctx context.Context, channelID, userID primitive.ObjectID, role string) error {
	_, err := s.members.InsertOne(ctx, models.ChannelMember{
		ChannelID: channelID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	})
	return err
}

// ListMembers returns all memberships for a channel.
func (s *Store) ListMembers(ctx context.Context, channelID primitive.ObjectID) ([]models.ChannelMember, error) {
	cur, err := s.members.Find(ctx, bson.M{"channel_id": channelID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var members []models.ChannelMember
	if err := cur.All(ctx, &members); err != nil {
		return nil, err
	}
	return members, nil
}
