package notify

import (
	"context"
	"errors"
	"testing"

	groupstore "github.com/dalemusser/edusync/internal/app/store/groups"
	"github.com/dalemusser/edusync/internal/app/system/apperr"
	"github.com/dalemusser/edusync/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeGroups struct {
	group models.Group
	err   error
}

func (f *fakeGroups) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	if f.err != nil {
		return models.Group{}, f.err
	}
	return f.group, nil
}

type fakeBatcher struct {
	batches [][]models.Notification
	err     error
}

func (f *fakeBatcher) InsertBatch(ctx context.Context, batch []models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, batch)
	return nil
}

func testGroup(members ...string) models.Group {
	return models.Group{
		ID:        primitive.NewObjectID(),
		Name:      "Study Group",
		MemberIDs: members,
	}
}

func TestFanoutExcludesActor(t *testing.T) {
	g := testGroup("a", "b", "c")
	batcher := &fakeBatcher{}
	f := New(&fakeGroups{group: g}, batcher, zap.NewNop())

	written, err := f.NotifyGroupMembers(context.Background(), Input{
		GroupID:  g.ID,
		ActorUID: "a",
		Type:     models.NotifTypeTask,
		Title:    "t",
		Message:  "m",
	})
	if err != nil {
		t.Fatalf("NotifyGroupMembers: %v", err)
	}
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}

	batch := batcher.batches[0]
	for _, n := range batch {
		if n.RecipientUID == "a" {
			t.Error("actor received their own notification")
		}
	}
}

func TestFanoutSoleMemberIsNoOp(t *testing.T) {
	g := testGroup("a")
	batcher := &fakeBatcher{}
	f := New(&fakeGroups{group: g}, batcher, zap.NewNop())

	written, err := f.NotifyGroupMembers(context.Background(), Input{
		GroupID:  g.ID,
		ActorUID: "a",
		Type:     models.NotifTypeTask,
	})
	if err != nil {
		t.Fatalf("NotifyGroupMembers: %v", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
	if len(batcher.batches) != 0 {
		t.Error("no batch should be written for zero recipients")
	}
}

func TestFanoutMissingGroupAbortsBeforeWrite(t *testing.T) {
	batcher := &fakeBatcher{}
	f := New(&fakeGroups{err: groupstore.ErrNotFound}, batcher, zap.NewNop())

	_, err := f.NotifyGroupMembers(context.Background(), Input{
		GroupID:  primitive.NewObjectID(),
		ActorUID: "a",
	})
	if !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("err = %v, want NotFound", err)
	}
	if len(batcher.batches) != 0 {
		t.Error("nothing may be written when the group is missing")
	}
}

func TestFanoutBatchFailureWritesNothing(t *testing.T) {
	g := testGroup("a", "b", "c")
	batcher := &fakeBatcher{err: apperr.E(apperr.StorageFailure, "test", "insert failed")}
	f := New(&fakeGroups{group: g}, batcher, zap.NewNop())

	written, err := f.NotifyGroupMembers(context.Background(), Input{
		GroupID:  g.ID,
		ActorUID: "a",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if written != 0 {
		t.Errorf("written = %d, want 0 on failed batch", written)
	}
}

func TestFanoutDuplicateDeliveryIsSuccess(t *testing.T) {
	g := testGroup("a", "b")
	batcher := &fakeBatcher{err: apperr.ErrAlreadyDelivered}
	f := New(&fakeGroups{group: g}, batcher, zap.NewNop())

	written, err := f.NotifyGroupMembers(context.Background(), Input{
		GroupID:  g.ID,
		ActorUID: "a",
		EventRef: "record-created:xyz",
	})
	if err != nil {
		t.Fatalf("duplicate delivery should be success, got %v", err)
	}
	if written != 1 {
		t.Errorf("written = %d, want 1", written)
	}
}

func TestFanoutRosterFallback(t *testing.T) {
	// Legacy groups carry only the embedded members array.
	g := models.Group{
		ID:   primitive.NewObjectID(),
		Name: "Legacy",
		Members: []models.GroupMember{
			{UID: "a"}, {UID: "b"},
		},
	}
	batcher := &fakeBatcher{}
	f := New(&fakeGroups{group: g}, batcher, zap.NewNop())

	written, err := f.NotifyGroupMembers(context.Background(), Input{GroupID: g.ID, ActorUID: "a"})
	if err != nil {
		t.Fatalf("NotifyGroupMembers: %v", err)
	}
	if written != 1 {
		t.Errorf("written = %d, want 1 from members fallback", written)
	}
}

func TestEventKeyDeterministic(t *testing.T) {
	gid := primitive.NewObjectID()
	in := Input{GroupID: gid, EventRef: "record-created:abc", Type: models.NotifTypeTask}

	if eventKey(in) != eventKey(in) {
		t.Error("same event must derive the same key")
	}

	other := in
	other.EventRef = "record-created:def"
	if eventKey(in) == eventKey(other) {
		t.Error("different events must derive different keys")
	}

	random := Input{GroupID: gid}
	if eventKey(random) == eventKey(random) {
		t.Error("events without a ref must get unique keys")
	}
}

func TestFanoutStorageErrorPassesThrough(t *testing.T) {
	g := testGroup("a", "b")
	cause := errors.New("socket closed")
	batcher := &fakeBatcher{err: apperr.Wrap(apperr.StorageFailure, "test", cause)}
	f := New(&fakeGroups{group: g}, batcher, zap.NewNop())

	_, err := f.NotifyGroupMembers(context.Background(), Input{GroupID: g.ID, ActorUID: "a"})
	if !apperr.Is(err, apperr.StorageFailure) {
		t.Fatalf("err = %v, want StorageFailure", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should remain unwrappable")
	}
}
