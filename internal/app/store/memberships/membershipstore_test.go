package membershipstore

import (
	"context"
	"errors"
	"testing"
	"time"

	groupstore "github.com/dalemusser/edusync/internal/app/store/groups"
	"github.com/dalemusser/edusync/internal/app/system/indexes"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/edusync/internal/testutil"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*Store, *groupstore.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	groups := groupstore.New(db)
	return New(db.Client(), db, groups, zap.NewNop()), groups, testutil.NewFixtures(t, db)
}

func TestJoinWritesBothSides(t *testing.T) {
	store, groups, _ := setup(t)
	ctx := testutil.TestContext(t)

	g, err := groups.Create(ctx, models.Group{Name: "Calc"}, models.GroupMember{UID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Join(ctx, g.ID, models.GroupMember{UID: "u2", Name: "Ben"}); err != nil {
		t.Fatalf("Join: %v", err)
	}

	got, err := groups.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.MemberIDs) != 2 {
		t.Errorf("roster = %v, want u1+u2", got.MemberIDs)
	}

	ids, err := store.ListGroupIDs(ctx, "u2")
	if err != nil {
		t.Fatalf("ListGroupIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != g.ID {
		t.Errorf("ids = %v, want [%v]", ids, g.ID)
	}
}

func TestJoinTwiceIsDuplicate(t *testing.T) {
	store, groups, _ := setup(t)
	ctx := testutil.TestContext(t)

	g, err := groups.Create(ctx, models.Group{Name: "Stats"}, models.GroupMember{UID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	m := models.GroupMember{UID: "u2"}
	if err := store.Join(ctx, g.ID, m); err != nil {
		t.Fatalf("first Join: %v", err)
	}
	if err := store.Join(ctx, g.ID, m); !errors.Is(err, ErrDuplicateMembership) {
		t.Fatalf("second Join err = %v, want ErrDuplicateMembership", err)
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	store, groups, _ := setup(t)
	ctx := testutil.TestContext(t)

	g, err := groups.Create(ctx, models.Group{Name: "Lit"}, models.GroupMember{UID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Join(ctx, g.ID, models.GroupMember{UID: "u2"}); err != nil {
		t.Fatal(err)
	}

	if err := store.Leave(ctx, g.ID, "u2"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if err := store.Leave(ctx, g.ID, "u2"); err != nil {
		t.Fatalf("repeat Leave must be a no-op, got %v", err)
	}

	got, _ := groups.GetByID(ctx, g.ID)
	if len(got.MemberIDs) != 1 {
		t.Errorf("roster = %v, want only creator", got.MemberIDs)
	}
	ids, _ := store.ListGroupIDs(ctx, "u2")
	if len(ids) != 0 {
		t.Errorf("ids = %v, want none", ids)
	}
}

func TestListGroupIDsDeduplicates(t *testing.T) {
	store, _, fx := setup(t)
	ctx := testutil.TestContext(t)

	gid := primitive.NewObjectID()
	other := primitive.NewObjectID()
	fx.CreateMembership(ctx, gid, "u9")
	fx.CreateMembership(ctx, other, "u9")

	ids, err := store.ListGroupIDs(ctx, "u9")
	if err != nil {
		t.Fatalf("ListGroupIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want 2", ids)
	}
}

func TestWatchGroups(t *testing.T) {
	store, groups, _ := setup(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snaps, errs, err := store.WatchGroups(ctx, "u-watch")
	if err != nil {
		t.Skipf("change streams unavailable (standalone deployment?): %v", err)
	}

	next := func() []primitive.ObjectID {
		t.Helper()
		select {
		case snap, ok := <-snaps:
			if !ok {
				t.Fatal("snapshot channel closed")
			}
			return snap
		case werr := <-errs:
			t.Fatalf("subscription error: %v", werr)
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
		return nil
	}

	if ids := next(); len(ids) != 0 {
		t.Fatalf("initial snapshot = %v, want empty", ids)
	}

	g, err := groups.Create(ctx, models.Group{Name: "Watched"}, models.GroupMember{UID: "creator"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Join(ctx, g.ID, models.GroupMember{UID: "u-watch"}); err != nil {
		t.Fatal(err)
	}
	if ids := next(); len(ids) != 1 || ids[0] != g.ID {
		t.Fatalf("snapshot after join = %v, want [%v]", ids, g.ID)
	}

	if err := store.Leave(ctx, g.ID, "u-watch"); err != nil {
		t.Fatal(err)
	}
	if ids := next(); len(ids) != 0 {
		t.Fatalf("snapshot after leave = %v, want empty", ids)
	}
}

func TestDeleteByGroup(t *testing.T) {
	store, _, fx := setup(t)
	ctx := testutil.TestContext(t)

	gid := primitive.NewObjectID()
	fx.CreateMembership(ctx, gid, "u1")
	fx.CreateMembership(ctx, gid, "u2")
	fx.CreateMembership(ctx, primitive.NewObjectID(), "u3")

	n, err := store.DeleteByGroup(ctx, gid)
	if err != nil {
		t.Fatalf("DeleteByGroup: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}

	ids, _ := store.ListGroupIDs(ctx, "u3")
	if len(ids) != 1 {
		t.Errorf("other group's membership must survive")
	}
}
