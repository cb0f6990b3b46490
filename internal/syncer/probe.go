package syncer

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"mirrorsync/internal/config"
	"mirrorsync/internal/logging"
	"mirrorsync/internal/uploader"
)

// Watcher estimates backend reachability by probing a lightweight endpoint at
// a fixed interval. Only the offline-to-online edge fires the callback; a
// steady online state never re-triggers a drain on its own.
type Watcher struct {
	probeURL string
	client   uploader.HTTPDoer
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	online atomic.Bool

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher builds a connectivity watcher probing probeURL.
func NewWatcher(cfg *config.Config, probeURL string, logger *slog.Logger) *Watcher {
	timeout := time.Duration(cfg.Sync.ProbeTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Watcher{
		probeURL: probeURL,
		client:   &http.Client{Timeout: timeout},
		interval: time.Duration(cfg.Sync.ProbeInterval) * time.Second,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "connectivity"),
	}
}

// Online reports the result of the most recent probe.
func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Start begins probing. onOnline is invoked on each offline-to-online
// transition, including the initial probe when the backend is reachable.
func (w *Watcher) Start(ctx context.Context, onOnline func()) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.run(runCtx, onOnline)
	}()
}

// Stop halts probing and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, onOnline func()) {
	w.check(ctx, onOnline)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx, onOnline)
		}
	}
}

func (w *Watcher) check(ctx context.Context, onOnline func()) {
	reachable := w.probe(ctx)
	wasOnline := w.online.Swap(reachable)
	if reachable && !wasOnline {
		w.logger.Info("backend reachable",
			logging.String(logging.FieldEventType, "connectivity_online"),
		)
		if onOnline != nil {
			onOnline()
		}
	} else if !reachable && wasOnline {
		w.logger.Warn("backend unreachable",
			logging.String(logging.FieldEventType, "connectivity_offline"),
		)
	}
}

func (w *Watcher) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, w.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
