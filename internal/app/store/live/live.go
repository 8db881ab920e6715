// Package live turns MongoDB change streams into full-replace snapshot
// subscriptions: the initial open and every subsequent change event
// trigger a fresh re-query, and the complete result set is delivered
// each time. Consumers therefore never patch partial updates together;
// they replace.
package live

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Subscription is a running snapshot subscription. Snapshots arrive on
// Snapshots in the order the change stream emits events (monotonic per
// subscription). A failure is delivered on Errs, after which both
// channels are closed. Cancel the context to tear down; no snapshot is
// delivered after the context is cancelled.
type Subscription[T any] struct {
	Snapshots <-chan T
	Errs      <-chan error
}

// Open starts a change stream on coll with the given pipeline and
// re-runs requery on every event. The first snapshot is queried and
// delivered before any change event is processed, so subscribers start
// from current state rather than from a diff.
func Open[T any](ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline, requery func(context.Context) (T, error), log *zap.Logger) (*Subscription[T], error) {
	// Update events carry no fullDocument unless the stream is opened
	// with updateLookup; without it a pipeline matching on fullDocument
	// fields would silently drop every in-place update.
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	cs, err := coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}

	snaps := make(chan T)
	errs := make(chan error, 1)

	go func() {
		defer close(snaps)
		defer close(errs)
		defer func() {
			// The stream context may already be dead; close with a fresh
			// background context so the cursor is released server-side.
			_ = cs.Close(context.Background())
		}()

		emit := func() bool {
			snap, err := requery(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return false
				}
				errs <- err
				return false
			}
			select {
			case snaps <- snap:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		for cs.Next(ctx) {
			if !emit() {
				return
			}
		}

		if err := cs.Err(); err != nil && ctx.Err() == nil {
			log.Warn("change stream closed with error",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			errs <- err
		}
	}()

	return &Subscription[T]{Snapshots: snaps, Errs: errs}, nil
}
