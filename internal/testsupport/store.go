package testsupport

import (
	"context"
	"testing"

	"mirrorsync/internal/config"
	"mirrorsync/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a pending upload for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, payload queue.Payload) *queue.Upload {
	t.Helper()

	upload, err := store.Enqueue(context.Background(), payload)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return upload
}

// Photo returns a small payload suitable for queue tests.
func Photo(userID string, challengeID int64, title string) queue.Payload {
	return queue.Payload{
		UserID:      userID,
		ChallengeID: challengeID,
		FileName:    "photo.jpg",
		Title:       title,
		Content:     []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10},
	}
}
