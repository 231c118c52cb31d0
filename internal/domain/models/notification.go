// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is one delivered in-app notification for one recipient.
//
// Type is a free-form tag (e.g. "task_assigned", "security_alert") that the
// preference resolver classifies by substring. Data carries the caller
// payload shallow-merged with provenance metadata describing which targeting
// scope produced the record; provenance keys win on conflict.
//
// Lifecycle: unread → read is one-way (ReadAt set once, never overwritten);
// deletion is a hard delete by the owning user.
type Notification struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type    string             `bson:"type" json:"type"`
	Title   string             `bson:"title" json:"title"`
	Message string             `bson:"message" json:"message"`
	Data    map[string]any     `bson:"data,omitempty" json:"data,omitempty"`

	Read   bool       `bson:"read" json:"read"`
	ReadAt *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
