// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupMembership is the authoritative join between users and groups.
// Exactly one document per (uid, group_id). The membership watcher
// subscribes to this collection rather than scanning group rosters,
// which bounds the read cost of discovering a user's groups.
type GroupMembership struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"groupId" json:"group_id"`
	UID      string             `bson:"uid" json:"uid"`
	Role     string             `bson:"role" json:"role"` // "leader" | "member"
	JoinedAt time.Time          `bson:"joinedAt" json:"joined_at"`
}
