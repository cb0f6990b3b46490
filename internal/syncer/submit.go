package syncer

import (
	"context"

	"mirrorsync/internal/logging"
	"mirrorsync/internal/queue"
	"mirrorsync/internal/uploader"
)

// SubmitResult describes how a submission was handled: delivered immediately,
// or enqueued for a later drain cycle.
type SubmitResult struct {
	Delivered bool
	UploadID  string
	Location  uploader.RemoteLocation
}

// Submit handles a new submission. While online it attempts immediate
// delivery; on a retryable failure, or while offline, the submission is
// persisted to the queue and a drain is scheduled. Non-retryable delivery
// failures are returned to the caller unqueued since a retry cannot help.
// A queue write failure is reported to the caller rather than dropped.
func (m *Manager) Submit(ctx context.Context, payload queue.Payload) (SubmitResult, error) {
	if m.Online() {
		location, err := m.uploader.Deliver(ctx, payload)
		if err == nil {
			m.logger.Info("submission delivered immediately",
				logging.String(logging.FieldEventType, "submission_delivered"),
				logging.String("user_id", payload.UserID),
				logging.Int64("challenge_id", payload.ChallengeID),
			)
			return SubmitResult{Delivered: true, Location: location}, nil
		}
		if !uploader.Retryable(err) {
			return SubmitResult{}, err
		}
		m.logger.Warn("immediate delivery failed, queueing",
			logging.Error(err),
		)
	}

	upload, err := m.store.Enqueue(ctx, payload)
	if err != nil {
		return SubmitResult{}, err
	}

	m.logger.Info("submission queued",
		logging.String(logging.FieldEventType, "submission_queued"),
		logging.String("upload_id", upload.ID),
	)
	if nerr := m.notifier.NotifyQueuedOffline(ctx, payload.Title); nerr != nil {
		m.logger.Warn("queued notification failed", logging.Error(nerr))
	}

	m.Trigger(TriggerEnqueue)
	return SubmitResult{UploadID: upload.ID}, nil
}
