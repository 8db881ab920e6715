// internal/app/sync/engine.go
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/apperr"
	"github.com/dalemusser/edusync/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MembershipSource delivers live snapshots of the set of group IDs a
// user belongs to. Implemented by the memberships store.
type MembershipSource interface {
	WatchGroups(ctx context.Context, uid string) (<-chan []primitive.ObjectID, <-chan error, error)
}

// RecordSource delivers live full-replace snapshots of one group's
// records and resolves the group's display name. Implemented by the
// records store.
type RecordSource interface {
	WatchRecords(ctx context.Context, groupID primitive.ObjectID) (<-chan []models.Record, <-chan error, error)
	GroupName(ctx context.Context, groupID primitive.ObjectID) (string, error)
}

// groupNameFallback labels records whose group name could not be
// resolved at subscription start.
const groupNameFallback = "Group"

// Engine maintains one user's live aggregate: it watches the user's
// membership set, keeps exactly one record subscription per current
// group, and merges their snapshots into the Aggregate.
//
// Every subscription carries an epoch. Teardown bumps the group's
// epoch before cancelling, and callbacks verify their epoch under the
// engine lock before touching the aggregate, so a stale in-flight
// snapshot from a removed (or removed-then-re-added) group can never
// clobber newer data.
type Engine struct {
	memberships MembershipSource
	records     RecordSource
	log         *zap.Logger

	agg *Aggregate

	mu      sync.Mutex
	current map[primitive.ObjectID]bool // group set as of the last membership snapshot
	epochs  map[primitive.ObjectID]uint64
	subs    map[primitive.ObjectID]*groupSub
	pending map[primitive.ObjectID]bool // groups not yet applied before first ready
	lastErr error

	ready     chan struct{}
	readyOnce sync.Once

	wg sync.WaitGroup
}

type groupSub struct {
	epoch  uint64
	cancel context.CancelFunc
}

func New(memberships MembershipSource, records RecordSource, logger *zap.Logger) *Engine {
	return &Engine{
		memberships: memberships,
		records:     records,
		log:         logger,
		agg:         NewAggregate(),
		current:     make(map[primitive.ObjectID]bool),
		epochs:      make(map[primitive.ObjectID]uint64),
		subs:        make(map[primitive.ObjectID]*groupSub),
		pending:     make(map[primitive.ObjectID]bool),
		ready:       make(chan struct{}),
	}
}

// Run drives the engine until ctx is cancelled or the membership
// subscription fails. On failure the aggregate degrades to empty
// (stale membership is never retained) and the error is returned.
func (e *Engine) Run(ctx context.Context, uid string) error {
	const op = "sync.Engine.Run"

	snaps, errs, err := e.memberships.WatchGroups(ctx, uid)
	if err != nil {
		// Same degraded contract as a mid-stream failure: readers get an
		// empty aggregate plus the surfaced error, never a silent empty.
		e.setErr(err)
		e.markReady()
		return apperr.Wrap(apperr.StorageFailure, op, err)
	}

	defer e.wg.Wait()
	defer e.teardownAll()

	for {
		select {
		case ids, ok := <-snaps:
			if !ok {
				snaps = nil
				if errs == nil {
					return nil
				}
				continue
			}
			e.reconcile(ctx, ids)

		case werr, ok := <-errs:
			if !ok {
				errs = nil
				if snaps == nil {
					return nil
				}
				continue
			}
			e.log.Error("membership subscription failed; degrading to empty set",
				zap.String("uid", uid), zap.Error(werr))
			e.teardownAll()
			e.setErr(werr)
			return apperr.Wrap(apperr.StorageFailure, op, werr)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reconcile applies one membership snapshot to the subscriber pool.
// Removed groups are torn down synchronously: by the time reconcile
// returns, their records are gone from the aggregate and any in-flight
// snapshot of theirs will be discarded by the epoch check.
func (e *Engine) reconcile(ctx context.Context, ids []primitive.ObjectID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, next := diffGroups(e.current, ids)
	e.current = next

	for _, gid := range d.Removed {
		e.teardownLocked(gid)
	}
	for _, gid := range d.Added {
		e.subscribeLocked(ctx, gid)
	}

	if !d.Empty() {
		e.log.Info("membership reconciled",
			zap.Int("groups", len(next)),
			zap.Int("added", len(d.Added)),
			zap.Int("removed", len(d.Removed)))
	}

	e.maybeReadyLocked()
}

func (e *Engine) subscribeLocked(ctx context.Context, gid primitive.ObjectID) {
	e.epochs[gid]++
	epoch := e.epochs[gid]

	subCtx, cancel := context.WithCancel(ctx)
	e.subs[gid] = &groupSub{epoch: epoch, cancel: cancel}

	select {
	case <-e.ready:
	default:
		e.pending[gid] = true
	}

	e.wg.Add(1)
	go e.runSubscriber(subCtx, gid, epoch)
}

func (e *Engine) teardownLocked(gid primitive.ObjectID) {
	sub, ok := e.subs[gid]
	if !ok {
		return
	}
	e.epochs[gid]++ // invalidates any in-flight callback immediately
	sub.cancel()
	delete(e.subs, gid)
	delete(e.pending, gid)
	e.agg.Drop(gid)
}

func (e *Engine) teardownAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for gid := range e.subs {
		e.teardownLocked(gid)
	}
	e.current = make(map[primitive.ObjectID]bool)
	e.agg.Clear()
	e.maybeReadyLocked()
}

// runSubscriber is the per-group subscription loop. The group name is
// resolved once here and cached for the subscription's lifetime.
func (e *Engine) runSubscriber(ctx context.Context, gid primitive.ObjectID, epoch uint64) {
	defer e.wg.Done()

	name, err := e.records.GroupName(ctx, gid)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.log.Warn("group name lookup failed; using fallback",
			zap.String("group_id", gid.Hex()), zap.Error(err))
		name = ""
	}
	if name == "" {
		name = groupNameFallback
	}

	snaps, errs, err := e.records.WatchRecords(ctx, gid)
	if err != nil {
		e.subscriptionFailed(gid, epoch, err)
		return
	}

	for {
		select {
		case recs, ok := <-snaps:
			if !ok {
				snaps = nil
				if errs == nil {
					return
				}
				continue
			}
			for i := range recs {
				recs[i].GroupName = name
			}
			e.apply(gid, epoch, recs)

		case werr, ok := <-errs:
			if !ok {
				errs = nil
				if snaps == nil {
					return
				}
				continue
			}
			e.subscriptionFailed(gid, epoch, werr)
			return

		case <-ctx.Done():
			return
		}
	}
}

// apply merges one snapshot into the aggregate, unless the snapshot
// comes from a superseded subscription epoch.
func (e *Engine) apply(gid primitive.ObjectID, epoch uint64, recs []models.Record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.epochs[gid] != epoch {
		e.log.Debug("discarding stale snapshot",
			zap.String("group_id", gid.Hex()),
			zap.Uint64("epoch", epoch),
			zap.Uint64("live_epoch", e.epochs[gid]))
		return
	}

	e.agg.Apply(gid, recs)
	delete(e.pending, gid)
	e.maybeReadyLocked()
}

// subscriptionFailed degrades one group conservatively: its slice of
// the aggregate is dropped rather than left stale.
func (e *Engine) subscriptionFailed(gid primitive.ObjectID, epoch uint64, err error) {
	e.mu.Lock()
	if e.epochs[gid] == epoch {
		e.agg.Drop(gid)
		delete(e.subs, gid)
		delete(e.pending, gid)
		e.lastErr = err
		e.maybeReadyLocked()
	}
	e.mu.Unlock()

	e.log.Error("group subscription failed; dropped from aggregate",
		zap.String("group_id", gid.Hex()), zap.Error(err))
}

func (e *Engine) maybeReadyLocked() {
	if len(e.pending) == 0 {
		e.markReady()
	}
}

func (e *Engine) markReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

// WaitReady blocks until the groups from the first membership snapshot
// have each delivered an initial record snapshot (or failed, or been
// removed), so first reads do not observe a half-built aggregate.
func (e *Engine) WaitReady(ctx context.Context) error {
	select {
	case <-e.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Records returns a copy of the merged aggregate.
func (e *Engine) Records() []models.Record {
	return e.agg.Snapshot()
}

// Buckets classifies the current aggregate relative to now. Always
// recomputed; never cached across reads.
func (e *Engine) Buckets(now time.Time) Buckets {
	return Classify(e.agg.Snapshot(), now)
}

// Err returns the most recent per-group subscription error, if any.
// The engine keeps running when a single group degrades; callers can
// surface this alongside data from the remaining groups.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) setErr(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
}
