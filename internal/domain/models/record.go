// internal/domain/models/record.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the persisted state of a record. "due" and "upcoming" are
// also derived buckets; the derived bucket is recomputed from DueAt on
// every read and never written back (a record crosses from upcoming to
// due purely because time advanced).
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusDue       Status = "due"
	StatusCompleted Status = "completed"
)

// Record is a tracked assignment or task inside one group.
//
// MemberIDs is a point-in-time snapshot of the group roster taken at
// creation; it intentionally drifts from the live roster afterwards.
// Fanout re-resolves the live roster instead of trusting this snapshot.
type Record struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	GroupID primitive.ObjectID `bson:"groupId" json:"group_id"`

	// GroupName is denormalized display data cached by the subscriber at
	// subscription start; it is never persisted with the record.
	GroupName string `bson:"-" json:"group_name,omitempty"`

	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	DueAt       time.Time `bson:"dueDate" json:"due_at"`
	Status      Status    `bson:"status" json:"status"`

	MemberIDs []string `bson:"memberIds" json:"member_ids"`

	CreatedBy string    `bson:"createdBy" json:"created_by"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}

// RecordKey identifies a record across groups. Record IDs are only
// unique within a group, so the aggregate must key on the pair.
type RecordKey struct {
	GroupID  primitive.ObjectID
	RecordID primitive.ObjectID
}

// Key returns the aggregate key for this record.
func (r Record) Key() RecordKey {
	return RecordKey{GroupID: r.GroupID, RecordID: r.ID}
}
