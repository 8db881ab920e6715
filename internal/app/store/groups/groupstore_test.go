package groupstore

import (
	"errors"
	"testing"

	"github.com/dalemusser/edusync/internal/app/system/indexes"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/edusync/internal/testutil"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	g, err := store.Create(ctx, models.Group{Name: "Physics", Description: "mechanics"},
		models.GroupMember{UID: "u1", Name: "Ana"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.CreatedBy != "u1" {
		t.Errorf("CreatedBy = %q, want creator uid", g.CreatedBy)
	}
	if len(g.MemberIDs) != 1 || g.MemberIDs[0] != "u1" {
		t.Errorf("MemberIDs = %v, want creator seeded", g.MemberIDs)
	}
	if len(g.Members) != 1 || g.Members[0].Role != "leader" {
		t.Errorf("Members = %v, want creator as leader", g.Members)
	}

	got, err := store.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Physics" {
		t.Errorf("Name = %q", got.Name)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateDuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := New(db)

	creator := models.GroupMember{UID: "u1", Name: "Ana"}
	if _, err := store.Create(ctx, models.Group{Name: "Chemistry"}, creator); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Case-insensitive collision via the folded name index.
	_, err := store.Create(ctx, models.Group{Name: "CHEMISTRY"}, creator)
	if !errors.Is(err, ErrDuplicateGroupName) {
		t.Fatalf("err = %v, want ErrDuplicateGroupName", err)
	}
}

func TestRosterAddRemove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	g, err := store.Create(ctx, models.Group{Name: "Bio"}, models.GroupMember{UID: "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	m := models.GroupMember{UID: "u2", Name: "Ben", Role: "member"}
	if err := store.AddToRoster(ctx, g.ID, m); err != nil {
		t.Fatalf("AddToRoster: %v", err)
	}
	// Idempotent: a second add must not duplicate either roster.
	if err := store.AddToRoster(ctx, g.ID, m); err != nil {
		t.Fatalf("AddToRoster (repeat): %v", err)
	}

	got, err := store.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.MemberIDs) != 2 || len(got.Members) != 2 {
		t.Fatalf("rosters = %v / %v, want 2 entries each", got.MemberIDs, got.Members)
	}

	if err := store.RemoveFromRoster(ctx, g.ID, "u2"); err != nil {
		t.Fatalf("RemoveFromRoster: %v", err)
	}
	got, _ = store.GetByID(ctx, g.ID)
	if len(got.MemberIDs) != 1 || len(got.Members) != 1 {
		t.Fatalf("rosters after remove = %v / %v", got.MemberIDs, got.Members)
	}
}

func TestAddToRosterMissingGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	err := store.AddToRoster(ctx, primitive.NewObjectID(), models.GroupMember{UID: "u1"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListByMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	creator := models.GroupMember{UID: "u1"}
	if _, err := store.Create(ctx, models.Group{Name: "A"}, creator); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, models.Group{Name: "B"}, creator); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, models.Group{Name: "C"}, models.GroupMember{UID: "u2"}); err != nil {
		t.Fatal(err)
	}

	gs, err := store.ListByMember(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByMember: %v", err)
	}
	if len(gs) != 2 {
		t.Fatalf("got %d groups, want 2", len(gs))
	}
}

func TestName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	g, err := store.Create(ctx, models.Group{Name: "History"}, models.GroupMember{UID: "u1"})
	if err != nil {
		t.Fatal(err)
	}

	name, err := store.Name(ctx, g.ID)
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if name != "History" {
		t.Errorf("name = %q", name)
	}

	if _, err := store.Name(ctx, primitive.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing group: err = %v, want ErrNotFound", err)
	}
}

func TestRosterIDsFallback(t *testing.T) {
	g := models.Group{
		Members: []models.GroupMember{{UID: "a"}, {UID: "b"}},
	}
	ids := g.RosterIDs()
	if len(ids) != 2 {
		t.Fatalf("RosterIDs = %v, want members fallback", ids)
	}

	g.MemberIDs = []string{"a"}
	if ids := g.RosterIDs(); len(ids) != 1 {
		t.Fatalf("RosterIDs = %v, memberIds must win when present", ids)
	}
}
