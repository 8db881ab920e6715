// internal/app/sync/manager.go
package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager owns one Engine per signed-in user, starting engines lazily
// on first access and retiring them after a period without reads. The
// HTTP layer never constructs engines directly.
type Manager struct {
	memberships MembershipSource
	records     RecordSource
	log         *zap.Logger

	idleTTL time.Duration

	mu      sync.Mutex
	engines map[string]*managedEngine

	stopCh chan struct{}
	wg     sync.WaitGroup
}

type managedEngine struct {
	engine   *Engine
	cancel   context.CancelFunc
	done     chan struct{}
	lastUsed time.Time
}

// NewManager creates a manager whose engines are retired after idleTTL
// without a read. The janitor runs once Start is called.
func NewManager(memberships MembershipSource, records RecordSource, idleTTL time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		memberships: memberships,
		records:     records,
		log:         logger,
		idleTTL:     idleTTL,
		engines:     make(map[string]*managedEngine),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the idle-engine janitor loop.
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.run()
	m.log.Info("sync engine manager started", zap.Duration("idle_ttl", m.idleTTL))
}

// Stop retires every engine and waits for the janitor and all engine
// goroutines to finish.
func (m *Manager) Stop() {
	close(m.stopCh)

	m.mu.Lock()
	retired := make([]*managedEngine, 0, len(m.engines))
	for uid, me := range m.engines {
		retired = append(retired, me)
		delete(m.engines, uid)
	}
	m.mu.Unlock()

	for _, me := range retired {
		me.cancel()
	}
	m.wg.Wait()
	m.log.Info("sync engine manager stopped")
}

// Engine returns the user's running engine, starting one if needed,
// and blocks until its first aggregate is assembled (bounded by ctx).
func (m *Manager) Engine(ctx context.Context, uid string) (*Engine, error) {
	me := m.acquire(ctx, uid)
	if err := me.engine.WaitReady(ctx); err != nil {
		return nil, err
	}
	return me.engine, nil
}

func (m *Manager) acquire(ctx context.Context, uid string) *managedEngine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if me, ok := m.engines[uid]; ok {
		select {
		case <-me.done:
			// engine exited (stream failure); replace it
		default:
			me.lastUsed = time.Now()
			return me
		}
	}

	eng := New(m.memberships, m.records, m.log.With(zap.String("uid", uid)))

	// The engine outlives the triggering request; it stops via the
	// janitor or Stop, not via the request context.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	me := &managedEngine{
		engine:   eng,
		cancel:   cancel,
		done:     make(chan struct{}),
		lastUsed: time.Now(),
	}
	m.engines[uid] = me

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(me.done)
		if err := eng.Run(runCtx, uid); err != nil && runCtx.Err() == nil {
			m.log.Warn("sync engine exited", zap.String("uid", uid), zap.Error(err))
		}
	}()

	return me
}

func (m *Manager) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.retireIdle()
		}
	}
}

func (m *Manager) retireIdle() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var retired []*managedEngine
	for uid, me := range m.engines {
		if me.lastUsed.Before(cutoff) {
			retired = append(retired, me)
			delete(m.engines, uid)
			m.log.Info("retiring idle sync engine", zap.String("uid", uid))
		}
	}
	m.mu.Unlock()

	for _, me := range retired {
		me.cancel()
	}
}

// Active reports the number of live engines.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}
