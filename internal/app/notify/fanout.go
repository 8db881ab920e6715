// internal/app/notify/fanout.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	groupstore "github.com/dalemusser/edusync/internal/app/store/groups"
	"github.com/dalemusser/edusync/internal/app/system/apperr"
	"github.com/dalemusser/edusync/internal/domain/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GroupGetter resolves a group by ID. Implemented by the groups store.
type GroupGetter interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
}

// NotificationBatcher writes a batch of notifications atomically.
// Implemented by the notifications store.
type NotificationBatcher interface {
	InsertBatch(ctx context.Context, batch []models.Notification) error
}

// Input describes one group event to fan out. EventRef, when set,
// makes the fanout idempotent: retries of the same (group, event, type)
// produce the same event key and are deduplicated by the store's
// unique index. When empty, every call is a distinct event.
type Input struct {
	GroupID  primitive.ObjectID
	ActorUID string
	EventRef string
	Type     string // models.NotifType* constant
	Title    string
	Message  string
	Target   models.Target
}

// Fanout turns group events into per-member notification batches.
type Fanout struct {
	groups GroupGetter
	notifs NotificationBatcher
	log    *zap.Logger
}

func New(groups GroupGetter, notifs NotificationBatcher, logger *zap.Logger) *Fanout {
	return &Fanout{groups: groups, notifs: notifs, log: logger}
}

// NotifyGroupMembers writes one notification per group member except
// the actor, atomically: either every recipient gets one or none do.
// Returns the number written. A group with no recipients besides the
// actor is a successful no-op. A missing group aborts with NotFound
// before anything is written.
func (f *Fanout) NotifyGroupMembers(ctx context.Context, in Input) (int, error) {
	const op = "notify.NotifyGroupMembers"

	g, err := f.groups.GetByID(ctx, in.GroupID)
	if err != nil {
		if errors.Is(err, groupstore.ErrNotFound) {
			return 0, apperr.E(apperr.NotFound, op, "group not found")
		}
		return 0, apperr.Wrap(apperr.StorageFailure, op, err)
	}

	var recipients []string
	for _, uid := range g.RosterIDs() {
		if uid == in.ActorUID {
			continue
		}
		recipients = append(recipients, uid)
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	key := eventKey(in)
	now := time.Now().UTC()

	batch := make([]models.Notification, 0, len(recipients))
	for _, uid := range recipients {
		batch = append(batch, models.Notification{
			ID:           primitive.NewObjectID(),
			RecipientUID: uid,
			Type:         in.Type,
			Title:        in.Title,
			Message:      in.Message,
			GroupID:      in.GroupID,
			Target:       in.Target,
			EventKey:     key,
			CreatedAt:    now,
		})
	}

	if err := f.notifs.InsertBatch(ctx, batch); err != nil {
		if errors.Is(err, apperr.ErrAlreadyDelivered) {
			f.log.Info("fanout already delivered",
				zap.String("group_id", in.GroupID.Hex()),
				zap.String("event_key", key))
			return len(batch), nil
		}
		return 0, err
	}

	f.log.Info("fanout delivered",
		zap.String("group_id", in.GroupID.Hex()),
		zap.String("type", in.Type),
		zap.Int("recipients", len(batch)))
	return len(batch), nil
}

// eventKey derives a stable key for the event. Deterministic when the
// caller supplies an EventRef, random otherwise.
func eventKey(in Input) string {
	if in.EventRef == "" {
		return uuid.NewString()
	}
	name := fmt.Sprintf("edusync:fanout:%s|%s|%s", in.GroupID.Hex(), in.EventRef, in.Type)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
