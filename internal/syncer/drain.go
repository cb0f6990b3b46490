package syncer

import (
	"context"
	"fmt"
	"time"

	"mirrorsync/internal/logging"
	"mirrorsync/internal/queue"
)

type attemptOutcome int

const (
	outcomeDelivered attemptOutcome = iota
	outcomeRequeued
	outcomeEvicted
)

// Drain runs one sync cycle over a snapshot of the pending queue. When
// another cycle is already running it returns a zero summary without touching
// the queue; the trigger is re-posted so the running cycle is followed by
// exactly one more.
// An empty queue completes silently. A non-empty cycle always ends with one
// aggregate notification, regardless of how many items it processed.
func (m *Manager) Drain(ctx context.Context, kind Trigger) (CycleSummary, error) {
	if !m.draining.CompareAndSwap(false, true) {
		m.Trigger(kind)
		return CycleSummary{}, nil
	}
	defer m.draining.Store(false)

	summary := CycleSummary{Trigger: kind, StartedAt: time.Now().UTC()}

	pending, err := m.store.ListPending(ctx)
	if err != nil {
		m.logger.Error("failed to read pending uploads",
			logging.String(logging.FieldEventType, "queue_read_failed"),
			logging.Error(err),
		)
		if nerr := m.notifier.NotifySyncError(ctx, err); nerr != nil {
			m.logger.Warn("sync error notification failed", logging.Error(nerr))
		}
		return summary, fmt.Errorf("list pending uploads: %w", err)
	}
	if len(pending) == 0 {
		summary.FinishedAt = time.Now().UTC()
		m.setLastCycle(summary)
		return summary, nil
	}

	m.logger.Info("drain cycle started",
		logging.String(logging.FieldEventType, "drain_started"),
		logging.String("trigger", string(kind)),
		logging.Int("pending", len(pending)),
	)

	for _, upload := range pending {
		if ctx.Err() != nil {
			break
		}
		switch m.attempt(ctx, upload) {
		case outcomeDelivered:
			summary.Synced++
		case outcomeEvicted:
			summary.Evicted++
			summary.Failed++
		default:
			summary.Failed++
		}
	}

	summary.FinishedAt = time.Now().UTC()
	m.setLastCycle(summary)

	m.logger.Info("drain cycle finished",
		logging.String(logging.FieldEventType, "drain_finished"),
		logging.Int("synced", summary.Synced),
		logging.Int("failed", summary.Failed),
		logging.Int("evicted", summary.Evicted),
	)

	if summary.Synced > 0 || summary.Failed > 0 {
		if err := m.notifier.NotifySyncCompleted(ctx, summary.Synced, summary.Failed); err != nil {
			m.logger.Warn("sync notification failed", logging.Error(err))
		}
	}
	return summary, nil
}

// attempt delivers one upload and applies the resulting queue transition:
// removal on success, a persisted retry increment on failure, and eviction
// once the retry count reaches the configured bound.
func (m *Manager) attempt(ctx context.Context, upload *queue.Upload) attemptOutcome {
	_, err := m.uploader.Deliver(ctx, upload.Payload)
	if err == nil {
		if _, rmErr := m.store.Remove(ctx, upload.ID); rmErr != nil {
			m.logger.Error("failed to remove delivered upload",
				logging.String("upload_id", upload.ID),
				logging.Error(rmErr),
			)
		}
		return outcomeDelivered
	}

	m.logger.Warn("upload attempt failed",
		logging.String("upload_id", upload.ID),
		logging.Int("retry_count", upload.RetryCount),
		logging.Error(err),
	)

	count, incErr := m.store.IncrementRetry(ctx, upload.ID)
	if incErr != nil {
		m.logger.Error("failed to record retry",
			logging.String("upload_id", upload.ID),
			logging.Error(incErr),
		)
		return outcomeRequeued
	}
	if count >= m.maxAttempts {
		if _, rmErr := m.store.Remove(ctx, upload.ID); rmErr != nil {
			m.logger.Error("failed to evict upload",
				logging.String("upload_id", upload.ID),
				logging.Error(rmErr),
			)
			return outcomeRequeued
		}
		m.logger.Warn("upload evicted after repeated failures",
			logging.String(logging.FieldEventType, "upload_evicted"),
			logging.String("upload_id", upload.ID),
			logging.Int("attempts", count),
		)
		return outcomeEvicted
	}
	return outcomeRequeued
}
