package sync

import (
	"testing"
	"time"

	"github.com/dalemusser/edusync/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func groupRecord(gid primitive.ObjectID, title string) models.Record {
	return models.Record{
		ID:      primitive.NewObjectID(),
		GroupID: gid,
		Title:   title,
		DueAt:   time.Now().Add(24 * time.Hour),
		Status:  models.StatusUpcoming,
	}
}

func TestAggregateApplyReplacesGroupSlice(t *testing.T) {
	agg := NewAggregate()
	gid := primitive.NewObjectID()

	r1 := groupRecord(gid, "one")
	r2 := groupRecord(gid, "two")
	agg.Apply(gid, []models.Record{r1, r2})

	if agg.Len() != 2 {
		t.Fatalf("Len = %d, want 2", agg.Len())
	}

	// Next snapshot dropped r2: it must disappear, not linger.
	r3 := groupRecord(gid, "three")
	agg.Apply(gid, []models.Record{r1, r3})

	got := agg.Group(gid)
	if len(got) != 2 {
		t.Fatalf("group slice = %d records, want 2", len(got))
	}
	for _, r := range got {
		if r.ID == r2.ID {
			t.Error("record dropped upstream still present after full-replace")
		}
	}
}

func TestAggregateApplyLeavesOtherGroupsAlone(t *testing.T) {
	agg := NewAggregate()
	g1, g2 := primitive.NewObjectID(), primitive.NewObjectID()

	agg.Apply(g1, []models.Record{groupRecord(g1, "a")})
	agg.Apply(g2, []models.Record{groupRecord(g2, "b")})

	agg.Apply(g1, nil) // g1 emptied

	if len(agg.Group(g1)) != 0 {
		t.Error("g1 should be empty")
	}
	if len(agg.Group(g2)) != 1 {
		t.Error("g2 must be untouched by g1's snapshot")
	}
}

func TestAggregateDropAndClear(t *testing.T) {
	agg := NewAggregate()
	g1, g2 := primitive.NewObjectID(), primitive.NewObjectID()

	agg.Apply(g1, []models.Record{groupRecord(g1, "a"), groupRecord(g1, "b")})
	agg.Apply(g2, []models.Record{groupRecord(g2, "c")})

	agg.Drop(g1)
	if agg.Len() != 1 {
		t.Fatalf("Len after Drop = %d, want 1", agg.Len())
	}

	agg.Clear()
	if agg.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", agg.Len())
	}
}

func TestAggregateSnapshotIsACopy(t *testing.T) {
	agg := NewAggregate()
	gid := primitive.NewObjectID()
	agg.Apply(gid, []models.Record{groupRecord(gid, "a")})

	snap := agg.Snapshot()
	snap[0].Title = "mutated"

	if agg.Group(gid)[0].Title == "mutated" {
		t.Error("mutating a snapshot leaked into the aggregate")
	}
}

func TestAggregateSameRecordIDAcrossGroups(t *testing.T) {
	agg := NewAggregate()
	g1, g2 := primitive.NewObjectID(), primitive.NewObjectID()
	rid := primitive.NewObjectID()

	agg.Apply(g1, []models.Record{{ID: rid, GroupID: g1, Title: "in g1"}})
	agg.Apply(g2, []models.Record{{ID: rid, GroupID: g2, Title: "in g2"}})

	if agg.Len() != 2 {
		t.Fatalf("Len = %d, want 2: record IDs are only unique per group", agg.Len())
	}
}
