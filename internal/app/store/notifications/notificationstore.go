// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"context"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/apperr"
	"github.com/dalemusser/edusync/internal/app/system/txn"
	"github.com/dalemusser/edusync/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store owns the notifications collection. Notifications are created
// only through InsertBatch (fanout) and mutated only by their
// recipient.
type Store struct {
	c      *mongo.Collection
	client *mongo.Client
	log    *zap.Logger
}

func New(client *mongo.Client, db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{
		c:      db.Collection("notifications"),
		client: client,
		log:    logger,
	}
}

// InsertBatch writes all notifications of one fanout call inside a
// transaction: either every recipient gets one or none do. Outcomes:
//
//   - nil: the batch committed.
//   - apperr.ErrAlreadyDelivered: the unique (recipientUid, eventKey)
//     index matched, meaning an earlier attempt of the same event
//     already committed; nothing was written now.
//   - apperr kind PartialWriteImpossible: the deployment cannot run
//     transactions, so the batch was refused rather than risk a
//     partial fanout.
func (s *Store) InsertBatch(ctx context.Context, notifs []models.Notification) error {
	const op = "notificationstore.InsertBatch"

	if len(notifs) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(notifs))
	for _, n := range notifs {
		docs = append(docs, n)
	}

	_, err := txn.WithTransaction(ctx, s.client, func(sc mongo.SessionContext) (interface{}, error) {
		return s.c.InsertMany(sc, docs) // ordered: first failure aborts the txn
	})
	if err == nil {
		return nil
	}
	if wafflemongo.IsDup(err) {
		return apperr.ErrAlreadyDelivered
	}
	if txn.IsNotSupported(err) {
		return apperr.Wrap(apperr.PartialWriteImpossible, op, err)
	}
	return apperr.Wrap(apperr.StorageFailure, op, err)
}

// ListByRecipient returns the user's notifications, newest first.
func (s *Store) ListByRecipient(ctx context.Context, uid string, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.c.Find(ctx, bson.M{"recipientUid": uid}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	notifs := []models.Notification{}
	if err := cur.All(ctx, &notifs); err != nil {
		return nil, err
	}
	return notifs, nil
}

// MarkRead flips the read flag. Recipient-scoped: a uid can only mark
// its own notifications.
func (s *Store) MarkRead(ctx context.Context, uid string, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "recipientUid": uid},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Delete removes one notification. Recipient-scoped.
func (s *Store) Delete(ctx context.Context, uid string, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "recipientUid": uid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteReadBefore purges read notifications created before the
// cutoff. Used by the retention worker.
func (s *Store) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"read":      true,
		"createdAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
