// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"time"

	"github.com/dalemusser/edusync/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Upsert creates or refreshes the local profile for a verified
// identity. Called on every login; the identity provider is the source
// of truth for name and email.
func (s *Store) Upsert(ctx context.Context, u models.User) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":      u.Name,
			"email":     u.Email,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
	}
	if u.AvatarPath != "" {
		update["$set"].(bson.M)["avatarPath"] = u.AvatarPath
	}
	_, err := s.c.UpdateByID(ctx, u.UID, update, options.Update().SetUpsert(true))
	return err
}

// GetByUID returns the local profile, or mongo.ErrNoDocuments.
func (s *Store) GetByUID(ctx context.Context, uid string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": uid}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}
