// internal/app/store/records/recordstore.go
package recordstore

import (
	"context"
	"errors"
	"time"

	groupstore "github.com/dalemusser/edusync/internal/app/store/groups"
	"github.com/dalemusser/edusync/internal/app/store/live"
	"github.com/dalemusser/edusync/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store owns the records collection (assignments and tasks). Records
// belong to exactly one group; every query is group-scoped because
// record IDs are only unique within a group.
type Store struct {
	c      *mongo.Collection
	groups *groupstore.Store
	log    *zap.Logger
}

var ErrNotFound = errors.New("record not found")

func New(db *mongo.Database, groups *groupstore.Store, logger *zap.Logger) *Store {
	return &Store{
		c:      db.Collection("records"),
		groups: groups,
		log:    logger,
	}
}

// Create inserts a record. The caller supplies the member snapshot
// (the group roster as of creation); it is stored verbatim and never
// refreshed afterwards.
func (s *Store) Create(ctx context.Context, rec models.Record) (models.Record, error) {
	now := time.Now().UTC()
	rec.ID = primitive.NewObjectID()
	if rec.Status == "" {
		rec.Status = models.StatusUpcoming
	}
	rec.CreatedAt = now

	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// ListByGroup returns all of a group's records ordered by due date
// ascending. This is the snapshot query behind WatchRecords.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"groupId": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	records := []models.Record{}
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Complete marks a record completed. Any group member may complete a
// record, not just its creator.
func (s *Store) Complete(ctx context.Context, groupID, recordID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": recordID, "groupId": groupID},
		bson.M{"$set": bson.M{"status": models.StatusCompleted}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record (the task-deletion flow; assignments are
// normally never deleted).
func (s *Store) Delete(ctx context.Context, groupID, recordID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": recordID, "groupId": groupID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByGroup removes all of a group's records (group deletion).
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"groupId": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// GroupName resolves the group's display name for subscriber caching.
func (s *Store) GroupName(ctx context.Context, groupID primitive.ObjectID) (string, error) {
	return s.groups.Name(ctx, groupID)
}

// WatchRecords opens a live subscription on one group's records. Every
// change delivers the full current set for the group, ordered by due
// date ascending — replace semantics, never a diff. Delete events
// carry no full document, so the stream also wakes on deletes from
// other groups; the re-query keeps the snapshot correct regardless.
func (s *Store) WatchRecords(ctx context.Context, groupID primitive.ObjectID) (<-chan []models.Record, <-chan error, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"fullDocument.groupId": groupID},
			bson.M{"operationType": "delete"},
		}}}},
	}

	sub, err := live.Open(ctx, s.c, pipeline, func(ctx context.Context) ([]models.Record, error) {
		return s.ListByGroup(ctx, groupID)
	}, s.log)
	if err != nil {
		return nil, nil, err
	}
	return sub.Snapshots, sub.Errs, nil
}
