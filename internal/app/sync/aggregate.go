// internal/app/sync/aggregate.go
package sync

import (
	"sync"

	"github.com/dalemusser/edusync/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Aggregate is the merged view of every subscribed group's records,
// keyed (groupID, recordID). It is the only shared mutable structure
// in the engine; all writes go through Apply/Drop/Clear and reads get
// copies, never live references.
//
// A single mutex over the whole map is deliberate: the expected
// cardinality is tens of groups, and coarse locking makes the
// delete-then-insert merge trivially non-interleaving.
type Aggregate struct {
	mu      sync.RWMutex
	records map[models.RecordKey]models.Record
}

func NewAggregate() *Aggregate {
	return &Aggregate{records: make(map[models.RecordKey]models.Record)}
}

// Apply replaces one group's slice of the aggregate: every existing
// entry under the group's key prefix is deleted, then the new records
// are inserted. Full-replace discipline is what lets a snapshot drop
// records that were deleted or reassigned upstream without the engine
// ever diffing.
func (a *Aggregate) Apply(groupID primitive.ObjectID, recs []models.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.dropLocked(groupID)
	for _, r := range recs {
		a.records[r.Key()] = r
	}
}

// Drop removes every record belonging to the group.
func (a *Aggregate) Drop(groupID primitive.ObjectID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dropLocked(groupID)
}

func (a *Aggregate) dropLocked(groupID primitive.ObjectID) {
	for k := range a.records {
		if k.GroupID == groupID {
			delete(a.records, k)
		}
	}
}

// Clear empties the aggregate (conservative degrade on membership
// subscription failure: stale data is discarded, never shown).
func (a *Aggregate) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = make(map[models.RecordKey]models.Record)
}

// Snapshot returns a copy of all records, in no particular order.
func (a *Aggregate) Snapshot() []models.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.Record, 0, len(a.records))
	for _, r := range a.records {
		out = append(out, r)
	}
	return out
}

// Group returns a copy of one group's records.
func (a *Aggregate) Group(groupID primitive.ObjectID) []models.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var out []models.Record
	for k, r := range a.records {
		if k.GroupID == groupID {
			out = append(out, r)
		}
	}
	return out
}

// Len reports the number of aggregated records.
func (a *Aggregate) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}
