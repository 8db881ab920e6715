// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	groupstore "github.com/dalemusser/edusync/internal/app/store/groups"
	"github.com/dalemusser/edusync/internal/app/store/live"
	"github.com/dalemusser/edusync/internal/app/system/txn"
	"github.com/dalemusser/edusync/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Store owns the group_memberships collection, the authoritative join
// between users and groups, and keeps the embedded group rosters in
// lockstep with it.
type Store struct {
	c      *mongo.Collection
	client *mongo.Client
	groups *groupstore.Store
	log    *zap.Logger
}

var ErrDuplicateMembership = errors.New("user is already a member of this group")

func New(client *mongo.Client, db *mongo.Database, groups *groupstore.Store, logger *zap.Logger) *Store {
	return &Store{
		c:      db.Collection("group_memberships"),
		client: client,
		groups: groups,
		log:    logger,
	}
}

// Join adds the user to the group: one membership document plus the
// embedded roster update, committed together when the deployment
// supports transactions. On standalone servers the two writes run
// sequentially; a crash between them is repaired by the next roster
// write, so joins do not demand strict atomicity the way fanout does.
func (s *Store) Join(ctx context.Context, groupID primitive.ObjectID, m models.GroupMember) error {
	doc := bson.M{
		"groupId":  groupID,
		"uid":      m.UID,
		"role":     roleOrMember(m.Role),
		"joinedAt": time.Now().UTC(),
	}

	_, err := txn.WithTransaction(ctx, s.client, func(sc mongo.SessionContext) (interface{}, error) {
		if err := s.groups.AddToRoster(sc, groupID, m); err != nil {
			return nil, err
		}
		_, err := s.c.InsertOne(sc, doc)
		return nil, err
	})
	if err != nil && txn.IsNotSupported(err) {
		s.log.Warn("transactions unavailable; joining without one",
			zap.String("group_id", groupID.Hex()))
		err = s.joinSequential(ctx, groupID, m, doc)
	}
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

func (s *Store) joinSequential(ctx context.Context, groupID primitive.ObjectID, m models.GroupMember, doc bson.M) error {
	if err := s.groups.AddToRoster(ctx, groupID, m); err != nil {
		return err
	}
	_, err := s.c.InsertOne(ctx, doc)
	return err
}

// Leave removes the membership document and the roster entries in one
// transaction (read-modify-write per the storage contract). Missing
// membership is not an error; leave is idempotent.
func (s *Store) Leave(ctx context.Context, groupID primitive.ObjectID, uid string) error {
	_, err := txn.WithTransaction(ctx, s.client, func(sc mongo.SessionContext) (interface{}, error) {
		if err := s.groups.RemoveFromRoster(sc, groupID, uid); err != nil {
			return nil, err
		}
		_, err := s.c.DeleteOne(sc, bson.M{"groupId": groupID, "uid": uid})
		return nil, err
	})
	if err != nil && txn.IsNotSupported(err) {
		s.log.Warn("transactions unavailable; leaving without one",
			zap.String("group_id", groupID.Hex()))
		if err = s.groups.RemoveFromRoster(ctx, groupID, uid); err != nil {
			return err
		}
		_, err = s.c.DeleteOne(ctx, bson.M{"groupId": groupID, "uid": uid})
	}
	return err
}

// DeleteByGroup removes every membership for a group. Used by the
// group-delete cascade; each deletion wakes the members' watchers so
// their engines drop the group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"groupId": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListGroupIDs returns the IDs of every group the user belongs to,
// deduplicated, in no particular order.
func (s *Store) ListGroupIDs(ctx context.Context, uid string) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"uid": uid},
		options.Find().SetProjection(bson.M{"groupId": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	seen := make(map[primitive.ObjectID]bool)
	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var doc struct {
			GroupID primitive.ObjectID `bson:"groupId"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		if !seen[doc.GroupID] {
			seen[doc.GroupID] = true
			ids = append(ids, doc.GroupID)
		}
	}
	return ids, cur.Err()
}

// ListByGroup returns all memberships for a group.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx, bson.M{"groupId": groupID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.GroupMembership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// WatchGroups opens a live subscription on the user's membership set.
// Every membership change re-queries and delivers the full, current
// set of group IDs. Delete events carry no full document, so the
// stream also wakes on deletes of any membership; the re-query filters
// back down to this user.
func (s *Store) WatchGroups(ctx context.Context, uid string) (<-chan []primitive.ObjectID, <-chan error, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"fullDocument.uid": uid},
			bson.M{"operationType": "delete"},
		}}}},
	}

	sub, err := live.Open(ctx, s.c, pipeline, func(ctx context.Context) ([]primitive.ObjectID, error) {
		return s.ListGroupIDs(ctx, uid)
	}, s.log)
	if err != nil {
		return nil, nil, err
	}
	return sub.Snapshots, sub.Errs, nil
}

func roleOrMember(role string) string {
	if role == "leader" {
		return "leader"
	}
	return "member"
}
