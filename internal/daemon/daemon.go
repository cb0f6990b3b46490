package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"mirrorsync/internal/config"
	"mirrorsync/internal/logging"
	"mirrorsync/internal/notifications"
	"mirrorsync/internal/queue"
	"mirrorsync/internal/syncer"
)

// Daemon coordinates the upload store and sync manager and enforces
// single-instance execution through a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	syncer   *syncer.Manager
	notifier notifications.Service
	logPath  string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Online       bool
	StartedAt    time.Time
	Queue        queue.HealthSummary
	LastCycle    *syncer.CycleSummary
	QueueDBPath  string
	SocketPath   string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, mgr *syncer.Manager, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || mgr == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, syncer, and logger")
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		syncer:   mgr,
		notifier: notifier,
		logPath:  filepath.Join(cfg.Paths.LogDir, "mirrorsync.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the sync manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mirrorsync daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.syncer.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start syncer: %w", err)
	}

	d.running.Store(true)
	d.startedAt = time.Now().UTC()
	d.logger.Info("mirrorsync daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.syncer.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("mirrorsync daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Submit hands a new submission to the sync manager for immediate delivery
// or queueing.
func (d *Daemon) Submit(ctx context.Context, payload queue.Payload) (syncer.SubmitResult, error) {
	return d.syncer.Submit(ctx, payload)
}

// RequestSync schedules a manual drain cycle.
func (d *Daemon) RequestSync() {
	d.syncer.Trigger(syncer.TriggerManual)
}

// ListQueue returns the pending uploads in drain order.
func (d *Daemon) ListQueue(ctx context.Context) ([]*queue.Upload, error) {
	if d.store == nil {
		return nil, errors.New("upload store unavailable")
	}
	return d.store.ListPending(ctx)
}

// GetUpload returns one pending upload, or nil when absent.
func (d *Daemon) GetUpload(ctx context.Context, id string) (*queue.Upload, error) {
	if d.store == nil {
		return nil, errors.New("upload store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// RemoveUpload deletes one pending upload. Removing an absent id is not an
// error; the bool reports whether a row was deleted.
func (d *Daemon) RemoveUpload(ctx context.Context, id string) (bool, error) {
	if d.store == nil {
		return false, errors.New("upload store unavailable")
	}
	return d.store.Remove(ctx, id)
}

// ClearQueue removes all pending uploads.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("upload store unavailable")
	}
	return d.store.Clear(ctx)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, errors.New("upload store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("upload store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Online:       d.syncer.Online(),
		StartedAt:    d.startedAt,
		LastCycle:    d.syncer.LastCycle(),
		QueueDBPath:  d.cfg.QueueDatabasePath(),
		SocketPath:   d.cfg.SocketPath(),
		LockFilePath: d.lockPath,
	}
	if health, err := d.store.Health(ctx); err == nil {
		status.Queue = health
	}
	return status
}
