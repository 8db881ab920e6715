// Package indexes creates the MongoDB indexes the app relies on.
// EnsureAll runs at startup from EnsureSchema; every ensure* function
// is idempotent and errors are aggregated so startup can fail fast
// with the full picture.
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureAll creates indexes for every collection.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureGroups(ctx, db); err != nil {
		problems = append(problems, "groups: "+err.Error())
	}
	if err := ensureGroupMemberships(ctx, db); err != nil {
		problems = append(problems, "group_memberships: "+err.Error())
	}
	if err := ensureRecords(ctx, db); err != nil {
		problems = append(problems, "records: "+err.Error())
	}
	if err := ensureNotifications(ctx, db); err != nil {
		problems = append(problems, "notifications: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil && strings.Contains(err.Error(), "IndexOptionsConflict") {
		// Same keys under a different name from an earlier deploy; the
		// index exists, which is all we need.
		return nil
	}
	return err
}

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("groups"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "memberIds", Value: 1}},
			Options: options.Index().SetName("member_ids"),
		},
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("name_ci_unique").SetUnique(true),
		},
	})
}

func ensureGroupMemberships(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("group_memberships"), []mongo.IndexModel{
		{
			// One membership document per user/group pair.
			Keys:    bson.D{{Key: "uid", Value: 1}, {Key: "groupId", Value: 1}},
			Options: options.Index().SetName("uid_group_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "groupId", Value: 1}},
			Options: options.Index().SetName("group"),
		},
	})
}

func ensureRecords(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("records"), []mongo.IndexModel{
		{
			// Snapshot re-queries read one group's records ordered by due date.
			Keys:    bson.D{{Key: "groupId", Value: 1}, {Key: "dueDate", Value: 1}},
			Options: options.Index().SetName("group_due"),
		},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("notifications"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "recipientUid", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("recipient_created"),
		},
		{
			// Fanout idempotency: a retried batch hits this and is treated
			// as already delivered.
			Keys:    bson.D{{Key: "recipientUid", Value: 1}, {Key: "eventKey", Value: 1}},
			Options: options.Index().SetName("recipient_event_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "read", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index().SetName("read_created"),
		},
	})
}
