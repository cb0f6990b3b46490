package syncer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mirrorsync/internal/config"
	"mirrorsync/internal/logging"
	"mirrorsync/internal/notifications"
	"mirrorsync/internal/queue"
	"mirrorsync/internal/uploader"
)

// Trigger identifies what woke the sync manager.
type Trigger string

const (
	// TriggerConnectivity fires on an offline-to-online transition.
	TriggerConnectivity Trigger = "connectivity"
	// TriggerManual fires on an explicit sync request from the CLI.
	TriggerManual Trigger = "manual"
	// TriggerEnqueue fires after a submission falls back to the queue.
	TriggerEnqueue Trigger = "enqueue"
)

// CycleSummary records the outcome of one drain cycle.
type CycleSummary struct {
	Trigger    Trigger
	Synced     int
	Failed     int
	Evicted    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Manager drains the upload queue against the uploader. All trigger sources
// converge on one buffered channel consumed by a single loop, and a
// single-flight guard ensures at most one drain cycle runs at a time;
// requests arriving mid-cycle coalesce into one follow-up cycle.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	uploader uploader.Uploader
	notifier notifications.Service
	logger   *slog.Logger
	watcher  *Watcher

	maxAttempts int
	errorRetry  time.Duration

	triggers chan Trigger
	draining atomic.Bool

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastCycle *CycleSummary
}

// NewManager constructs a sync manager. The watcher may be nil, in which case
// the manager assumes connectivity and relies on delivery failures alone.
func NewManager(cfg *config.Config, store *queue.Store, up uploader.Uploader, notifier notifications.Service, watcher *Watcher, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:         cfg,
		store:       store,
		uploader:    up,
		notifier:    notifier,
		watcher:     watcher,
		logger:      logging.NewComponentLogger(logger, "syncer"),
		maxAttempts: cfg.Sync.MaxAttempts,
		errorRetry:  time.Duration(cfg.Sync.ErrorRetryInterval) * time.Second,
		triggers:    make(chan Trigger, 1),
	}
}

// Start launches the trigger loop and, when configured, the connectivity
// watcher. An initial drain picks up uploads left over from a prior run.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("syncer already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if m.watcher != nil {
		m.watcher.Start(runCtx, func() {
			m.Trigger(TriggerConnectivity)
		})
	}

	go func() {
		defer m.wg.Done()
		m.run(runCtx)
	}()

	m.Trigger(TriggerEnqueue)
	return nil
}

// Stop terminates background processing and waits for the current cycle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	if m.watcher != nil {
		m.watcher.Stop()
	}
	m.wg.Wait()
}

// Trigger requests a drain cycle. The send never blocks: a trigger already
// pending means the queue will be drained soon anyway.
func (m *Manager) Trigger(kind Trigger) {
	select {
	case m.triggers <- kind:
	default:
	}
}

// Online reports the current connectivity estimate.
func (m *Manager) Online() bool {
	if m.watcher == nil {
		return true
	}
	return m.watcher.Online()
}

// LastCycle returns the most recent drain summary, or nil before the first.
func (m *Manager) LastCycle() *CycleSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastCycle == nil {
		return nil
	}
	cp := *m.lastCycle
	return &cp
}

// Running reports whether the trigger loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case kind := <-m.triggers:
			if _, err := m.Drain(ctx, kind); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				// Queue read failed; back off, then retry the same trigger.
				select {
				case <-ctx.Done():
					return
				case <-time.After(m.errorRetry):
				}
				m.Trigger(kind)
			}
		}
	}
}

func (m *Manager) setLastCycle(summary CycleSummary) {
	m.mu.Lock()
	m.lastCycle = &summary
	m.mu.Unlock()
}
