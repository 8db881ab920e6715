// internal/app/sync/classify.go
package sync

import (
	"sort"
	"time"

	"github.com/dalemusser/edusync/internal/domain/models"
)

// DueSoonDays is the size of the "due" window: anything due on or
// before the end of the seventh day from now counts as due.
const DueSoonDays = 7

// Buckets is the derived three-way classification of the aggregate.
// It is never persisted; a record can move from upcoming to due purely
// because wall-clock time advanced.
type Buckets struct {
	Due       []models.Record `json:"due"`
	Upcoming  []models.Record `json:"upcoming"`
	Completed []models.Record `json:"completed"`
}

// Classify buckets records relative to now. Pure: it never reads the
// clock itself and has no side effects, so the same (records, now)
// always yields the same buckets in the same order.
//
//   - completed status wins regardless of due date
//   - due: dueAt <= end of day of (now + DueSoonDays)
//   - otherwise upcoming
//
// Due and upcoming sort ascending by due date, completed descending
// (most recently due first). Ties break by record ID, then group ID,
// so ordering is deterministic across reads.
func Classify(records []models.Record, now time.Time) Buckets {
	var b Buckets
	limit := endOfDayPlus(now, DueSoonDays)

	for _, r := range records {
		switch {
		case r.Status == models.StatusCompleted:
			b.Completed = append(b.Completed, r)
		case !r.DueAt.After(limit):
			b.Due = append(b.Due, r)
		default:
			b.Upcoming = append(b.Upcoming, r)
		}
	}

	sortAscending(b.Due)
	sortAscending(b.Upcoming)
	sortDescending(b.Completed)
	return b
}

// endOfDayPlus returns 23:59:59 of the day `days` days after now, in
// now's location.
func endOfDayPlus(now time.Time, days int) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+days, 23, 59, 59, 0, now.Location())
}

func sortAscending(recs []models.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].DueAt.Equal(recs[j].DueAt) {
			return recs[i].DueAt.Before(recs[j].DueAt)
		}
		return lessByID(recs[i], recs[j])
	})
}

func sortDescending(recs []models.Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].DueAt.Equal(recs[j].DueAt) {
			return recs[i].DueAt.After(recs[j].DueAt)
		}
		return lessByID(recs[i], recs[j])
	})
}

func lessByID(a, b models.Record) bool {
	if a.ID != b.ID {
		return a.ID.Hex() < b.ID.Hex()
	}
	return a.GroupID.Hex() < b.GroupID.Hex()
}
