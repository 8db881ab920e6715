package userstore

import (
	"errors"
	"testing"

	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/edusync/internal/testutil"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestUpsertInsertsThenRefreshes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	if err := store.Upsert(ctx, models.User{UID: "u1", Name: "Ana", Email: "ana@test.com"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	u, err := store.GetByUID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUID: %v", err)
	}
	if u.Name != "Ana" || u.CreatedAt.IsZero() {
		t.Errorf("profile = %+v", u)
	}

	// The identity provider wins on re-login.
	if err := store.Upsert(ctx, models.User{UID: "u1", Name: "Ana B.", Email: "ana@test.com"}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	got, _ := store.GetByUID(ctx, "u1")
	if got.Name != "Ana B." {
		t.Errorf("Name = %q, want refreshed", got.Name)
	}
	if !got.CreatedAt.Equal(u.CreatedAt) {
		t.Error("CreatedAt must not change on refresh")
	}
}

func TestGetByUIDMissing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := testutil.TestContext(t)
	store := New(db)

	if _, err := store.GetByUID(ctx, "nobody"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("err = %v, want ErrNoDocuments", err)
	}
}
