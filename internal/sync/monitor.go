package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vigil/internal/models"

	"github.com/sirupsen/logrus"
)

// SyncEngine is implemented by *Engine; the monitor only needs the pass.
type SyncEngine interface {
	SyncPendingIncidents(ctx context.Context) (models.SyncResult, error)
}

// CacheRefresher is implemented by *Refresher.
type CacheRefresher interface {
	Refresh(ctx context.Context) error
}

// StateStore is the slice of the local store the monitor reads.
type StateStore interface {
	LastSyncAt(ctx context.Context) (time.Time, error)
}

// Monitor polls reachability on a fixed interval, independent of any
// caller's lifecycle. When the device is connected and the last
// successful sync is stale, it runs a sync pass and then refreshes the
// incident cache regardless of how the pass went.
type Monitor struct {
	checker   Checker
	state     *ConnectivityState
	store     StateStore
	engine    SyncEngine
	refresher CacheRefresher
	interval  time.Duration
	maxAge    time.Duration
	logger    *logrus.Logger
	now       func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

func NewMonitor(checker Checker, state *ConnectivityState, store StateStore, engine SyncEngine, refresher CacheRefresher, interval, maxAge time.Duration, logger *logrus.Logger) *Monitor {
	return &Monitor{
		checker:   checker,
		state:     state,
		store:     store,
		engine:    engine,
		refresher: refresher,
		interval:  interval,
		maxAge:    maxAge,
		logger:    logger,
		now:       time.Now,
	}
}

// Start begins the background polling process
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("connectivity monitor is already running")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.running = true

	m.wg.Add(1)
	go m.pollLoop()

	m.logger.WithFields(logrus.Fields{
		"interval": m.interval,
		"max_age":  m.maxAge,
	}).Info("Connectivity monitor started")

	return nil
}

// Stop gracefully stops the polling process
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.logger.Info("Stopping connectivity monitor...")
	m.cancel()
	m.wg.Wait()
	m.running = false
	m.logger.Info("Connectivity monitor stopped")
}

// IsRunning returns whether the monitor is currently active
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Monitor) pollLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.tick(m.ctx)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.tick(m.ctx)
		}
	}
}

// tick is one evaluation: update the connectivity flag, sync if stale,
// refresh the cache.
func (m *Monitor) tick(ctx context.Context) {
	connected := m.checker.Check(ctx)
	m.state.setConnected(connected)

	if !connected {
		return
	}

	needed, err := m.IsSyncNeeded(ctx, m.maxAge)
	if err != nil {
		m.logger.WithError(err).Error("Failed to evaluate sync staleness")
		return
	}

	if needed {
		result, err := m.engine.SyncPendingIncidents(ctx)
		if err != nil {
			m.logger.WithError(err).Warn("Sync pass failed")
		} else if result.Synced > 0 || result.Failed > 0 {
			m.logger.WithFields(logrus.Fields{
				"synced": result.Synced,
				"failed": result.Failed,
			}).Info("Sync pass completed")
		}
	}

	if err := m.refresher.Refresh(ctx); err != nil {
		m.logger.WithError(err).Warn("Incident cache refresh failed")
	}
}

// IsSyncNeeded reports whether no successful sync has ever been recorded
// or the last one is older than maxAge.
func (m *Monitor) IsSyncNeeded(ctx context.Context, maxAge time.Duration) (bool, error) {
	lastSync, err := m.store.LastSyncAt(ctx)
	if err != nil {
		return false, err
	}
	if lastSync.IsZero() {
		return true, nil
	}
	return m.now().Sub(lastSync) > maxAge, nil
}
