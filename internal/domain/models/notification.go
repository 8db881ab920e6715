// internal/domain/models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types mirror the triggering mutation.
const (
	NotifTypeFile       = "file"
	NotifTypeTask       = "task"
	NotifTypeAssignment = "assignment"
	NotifTypeGroup      = "group"
)

// Target tells the client where to navigate when a notification is
// opened.
type Target struct {
	Screen     string             `bson:"screen" json:"screen"`
	GroupID    primitive.ObjectID `bson:"groupId,omitempty" json:"group_id,omitempty"`
	GroupName  string             `bson:"groupName,omitempty" json:"group_name,omitempty"`
	InitialTab string             `bson:"initialTab,omitempty" json:"initial_tab,omitempty"` // "Files" | "Tasks" | "Assignments"
}

// Notification is owned by its recipient: created only by fanout,
// mutated (mark-read) or deleted only by the recipient.
//
// EventKey is a deterministic UUID derived from the triggering event;
// together with the unique (recipientUid, eventKey) index it makes a
// client retry of the same fanout call a no-op instead of a duplicate.
type Notification struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	RecipientUID string             `bson:"recipientUid" json:"recipient_uid"`
	Type         string             `bson:"type" json:"type"`
	Title        string             `bson:"title" json:"title"`
	Message      string             `bson:"message" json:"message"`
	GroupID      primitive.ObjectID `bson:"groupId" json:"group_id"`
	Target       Target             `bson:"target" json:"target"`
	EventKey     string             `bson:"eventKey" json:"event_key"`
	Read         bool               `bson:"read" json:"read"`
	CreatedAt    time.Time          `bson:"createdAt" json:"created_at"`
}
