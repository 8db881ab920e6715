// internal/domain/models/user.go
package models

import "time"

// User is the local profile for an identity-provider account. The UID
// is issued by the external identity provider and doubles as the
// document _id; we never mint user IDs ourselves.
type User struct {
	UID        string    `bson:"_id" json:"uid"`
	Name       string    `bson:"name" json:"name"`
	Email      string    `bson:"email" json:"email"`
	AvatarPath string    `bson:"avatarPath,omitempty" json:"avatar_path,omitempty"`
	CreatedAt  time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updated_at"`
}

// DisplayName returns the best human-readable label for the user.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.UID
}
