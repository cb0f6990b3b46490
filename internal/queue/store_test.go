package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mirrorsync/internal/queue"
	"mirrorsync/internal/testsupport"
)

func TestEnqueueAssignsDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	upload, err := store.Enqueue(context.Background(), testsupport.Photo("user-1", 42, "Sunset"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if upload.ID == "" {
		t.Fatal("expected generated upload id")
	}
	if upload.RetryCount != 0 {
		t.Fatalf("expected retry count 0, got %d", upload.RetryCount)
	}
	if upload.CreatedAt.IsZero() {
		t.Fatal("expected created timestamp")
	}
	if upload.Payload.UserID != "user-1" || upload.Payload.ChallengeID != 42 {
		t.Fatalf("unexpected payload: %+v", upload.Payload)
	}
}

func TestEnqueueValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.Enqueue(context.Background(), queue.Payload{Content: []byte{1}}); err == nil {
		t.Fatal("expected error for missing user id")
	}
	if _, err := store.Enqueue(context.Background(), queue.Payload{UserID: "user-1"}); err == nil {
		t.Fatal("expected error for missing content")
	}
}

func TestListPendingPreservesEnqueueOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	titles := []string{"first", "second", "third"}
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		upload := testsupport.Enqueue(t, store, testsupport.Photo("user-1", 1, title))
		ids = append(ids, upload.ID)
		time.Sleep(2 * time.Millisecond)
	}

	pending, err := store.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != len(titles) {
		t.Fatalf("expected %d pending uploads, got %d", len(titles), len(pending))
	}
	for i, upload := range pending {
		if upload.ID != ids[i] {
			t.Fatalf("position %d: expected %s, got %s", i, ids[i], upload.ID)
		}
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	upload := testsupport.Enqueue(t, store, testsupport.Photo("user-1", 1, "Sunset"))

	removed, err := store.Remove(context.Background(), upload.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("expected first remove to delete the row")
	}

	removed, err = store.Remove(context.Background(), upload.ID)
	if err != nil {
		t.Fatalf("second Remove: %v", err)
	}
	if removed {
		t.Fatal("expected second remove to be a no-op")
	}
}

func TestIncrementRetryPersists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	upload := testsupport.Enqueue(t, store, testsupport.Photo("user-1", 1, "Sunset"))

	for want := 1; want <= 2; want++ {
		count, err := store.IncrementRetry(context.Background(), upload.ID)
		if err != nil {
			t.Fatalf("IncrementRetry: %v", err)
		}
		if count != want {
			t.Fatalf("expected retry count %d, got %d", want, count)
		}
	}

	fetched, err := store.GetByID(context.Background(), upload.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil || fetched.RetryCount != 2 {
		t.Fatalf("expected persisted retry count 2, got %+v", fetched)
	}
}

func TestIncrementRetryUnknownID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.IncrementRetry(context.Background(), "no-such-id"); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	upload := testsupport.Enqueue(t, store, testsupport.Photo("user-1", 7, "Harbor"))
	if _, err := store.IncrementRetry(context.Background(), upload.ID); err != nil {
		t.Fatalf("IncrementRetry: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	pending, err := reopened.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending after reopen: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending upload after reopen, got %d", len(pending))
	}
	if pending[0].ID != upload.ID || pending[0].RetryCount != 1 {
		t.Fatalf("unexpected upload after reopen: %+v", pending[0])
	}
	if string(pending[0].Payload.Content) != string(upload.Payload.Content) {
		t.Fatal("photo content changed across reopen")
	}
}

func TestClearRemovesEverything(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	for i := 0; i < 3; i++ {
		testsupport.Enqueue(t, store, testsupport.Photo("user-1", int64(i+1), "photo"))
	}

	removed, err := store.Clear(context.Background())
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}

	pending, err := store.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue, got %d items", len(pending))
	}
}

func TestHealthCountsRetrying(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.Enqueue(t, store, testsupport.Photo("user-1", 1, "fresh"))
	retrying := testsupport.Enqueue(t, store, testsupport.Photo("user-1", 2, "stuck"))
	if _, err := store.IncrementRetry(context.Background(), retrying.ID); err != nil {
		t.Fatalf("IncrementRetry: %v", err)
	}

	health, err := store.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Pending != 2 {
		t.Fatalf("expected 2 pending, got %d", health.Pending)
	}
	if health.Retrying != 1 {
		t.Fatalf("expected 1 retrying, got %d", health.Retrying)
	}
}

func TestConcurrentWritersDoNotContend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	uploads := make([]*queue.Upload, 16)
	for i := range uploads {
		uploads[i] = testsupport.Enqueue(t, store, testsupport.Photo("user-1", int64(i+1), "burst"))
	}

	// Retry bookkeeping from a drain cycle and removals over IPC hit the
	// store from different goroutines; neither may surface a busy error.
	var wg sync.WaitGroup
	errs := make(chan error, len(uploads))
	for i, upload := range uploads {
		wg.Add(1)
		if i%2 == 0 {
			go func(id string) {
				defer wg.Done()
				if _, err := store.IncrementRetry(context.Background(), id); err != nil {
					errs <- err
				}
			}(upload.ID)
		} else {
			go func(id string) {
				defer wg.Done()
				if _, err := store.Remove(context.Background(), id); err != nil {
					errs <- err
				}
			}(upload.ID)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent write failed: %v", err)
	}

	pending, err := store.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != len(uploads)/2 {
		t.Fatalf("expected %d retained uploads, got %d", len(uploads)/2, len(pending))
	}
}

func TestStorageErrorAfterClose(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err = store.Enqueue(context.Background(), testsupport.Photo("user-1", 1, "late"))
	if !errors.Is(err, queue.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
