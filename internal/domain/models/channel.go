// internal/domain/models/channel.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel types.
const (
	ChannelPublic  = "public"
	ChannelPrivate = "private"
	ChannelDirect  = "direct"
)

// Channel is a chat channel inside an organization.
type Channel struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	OrgID primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	Type  string             `bson:"type" json:"type"` // public | private | direct

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ChannelMember joins users to channels.
type ChannelMember struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChannelID primitive.ObjectID `bson:"channel_id" json:"channel_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role      string             `bson:"role" json:"role"`

	JoinedAt time.Time `bson:"joined_at" json:"joined_at"`
}
