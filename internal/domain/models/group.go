// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group represents a study group.
//
// NOTE:
//   - The authoritative membership join lives in the group_memberships
//     collection (one document per user/group pair); the embedded
//     MemberIDs/Members roster is kept in lockstep for cheap display
//     and for notification fanout.
//   - BSON field names (memberIds, members, uid, ...) are the wire
//     contract shared with the mobile client and must not change.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"groupName" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`

	// MemberIDs is the flat roster used for membership queries and fanout.
	MemberIDs []string `bson:"memberIds" json:"memberIds"`
	// Members is the richer roster; older group documents may carry only
	// this form, so readers fall back to it when MemberIDs is empty.
	Members []GroupMember `bson:"members,omitempty" json:"members,omitempty"`

	CreatedBy string    `bson:"createdBy" json:"created_by"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// GroupMember is one entry of the rich roster.
type GroupMember struct {
	UID  string `bson:"uid" json:"uid"`
	Name string `bson:"name,omitempty" json:"name,omitempty"`
	Role string `bson:"role,omitempty" json:"role,omitempty"` // "leader" | "member"
}

// RosterIDs returns the group's member UIDs, preferring the flat
// memberIds list and falling back to the rich members array for group
// documents that predate memberIds. Blank entries are dropped.
func (g Group) RosterIDs() []string {
	ids := make([]string, 0, len(g.MemberIDs))
	for _, id := range g.MemberIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	for _, m := range g.Members {
		if m.UID != "" {
			ids = append(ids, m.UID)
		}
	}
	return ids
}
