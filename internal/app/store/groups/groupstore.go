// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/edusync/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrNotFound           = errors.New("group not found")
	ErrDuplicateGroupName = errors.New("a group with this name already exists")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

// GetByID returns the group document, including both roster forms.
// Fanout calls this live at notification time rather than trusting any
// cached membership.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Group{}, ErrNotFound
		}
		return models.Group{}, err
	}
	return g, nil
}

// Create inserts a group with the creator seeded into both rosters.
func (s *Store) Create(ctx context.Context, g models.Group, creator models.GroupMember) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.MemberIDs = []string{creator.UID}
	if creator.Role == "" {
		creator.Role = "leader"
	}
	g.Members = []models.GroupMember{creator}
	g.CreatedBy = creator.UID
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.c.InsertOne(ctx, g)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateGroupName
		}
		return models.Group{}, err
	}
	return g, nil
}

// AddToRoster appends a member to both embedded rosters. $addToSet
// keeps the flat list deduplicated; the rich roster is only appended
// when the uid is not already present. Pass a session context to run
// inside a transaction.
func (s *Store) AddToRoster(ctx context.Context, groupID primitive.ObjectID, m models.GroupMember) error {
	res, err := s.c.UpdateByID(ctx, groupID, bson.M{
		"$addToSet": bson.M{"memberIds": m.UID},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	_, err = s.c.UpdateOne(ctx,
		bson.M{"_id": groupID, "members.uid": bson.M{"$ne": m.UID}},
		bson.M{"$push": bson.M{"members": m}},
	)
	return err
}

// RemoveFromRoster drops a member from both embedded rosters.
func (s *Store) RemoveFromRoster(ctx context.Context, groupID primitive.ObjectID, uid string) error {
	res, err := s.c.UpdateByID(ctx, groupID, bson.M{
		"$pull": bson.M{
			"memberIds": uid,
			"members":   bson.M{"uid": uid},
		},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByMember returns the groups whose roster contains uid, newest
// first. Display/listing path only; the live membership watcher reads
// group_memberships instead.
func (s *Store) ListByMember(ctx context.Context, uid string) ([]models.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"memberIds": uid}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []models.Group
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Name returns the group's display name. Subscribers resolve it once
// at subscription start and cache it for the subscription's lifetime.
func (s *Store) Name(ctx context.Context, id primitive.ObjectID) (string, error) {
	var doc struct {
		Name string `bson:"groupName"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"groupName": 1})).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", ErrNotFound
		}
		return "", err
	}
	return doc.Name, nil
}

// Delete removes a group by ID. Returns the number of documents
// deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
