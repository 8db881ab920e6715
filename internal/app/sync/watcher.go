// internal/app/sync/watcher.go
package sync

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Diff is the delta between two membership snapshots: which groups
// appeared and which disappeared. The engine reconciles its subscriber
// pool incrementally from diffs instead of resubscribing everything on
// every membership change.
type Diff struct {
	Added   []primitive.ObjectID
	Removed []primitive.ObjectID
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// diffGroups compares the previous membership set against a new
// snapshot. The snapshot may contain duplicates (the store already
// deduplicates, but the diff does not rely on it); the returned set is
// deduplicated.
func diffGroups(prev map[primitive.ObjectID]bool, snapshot []primitive.ObjectID) (Diff, map[primitive.ObjectID]bool) {
	next := make(map[primitive.ObjectID]bool, len(snapshot))
	var d Diff

	for _, id := range snapshot {
		if next[id] {
			continue
		}
		next[id] = true
		if !prev[id] {
			d.Added = append(d.Added, id)
		}
	}
	for id := range prev {
		if !next[id] {
			d.Removed = append(d.Removed, id)
		}
	}
	return d, next
}
