package ipc_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"mirrorsync/internal/daemon"
	"mirrorsync/internal/ipc"
	"mirrorsync/internal/logging"
	"mirrorsync/internal/notifications"
	"mirrorsync/internal/queue"
	"mirrorsync/internal/syncer"
	"mirrorsync/internal/testsupport"
	"mirrorsync/internal/uploader"
)

// switchableUploader succeeds until failWith is set.
type switchableUploader struct {
	mu       sync.Mutex
	failWith error
}

func (f *switchableUploader) Deliver(ctx context.Context, payload queue.Payload) (uploader.RemoteLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return uploader.RemoteLocation{}, f.failWith
	}
	return uploader.RemoteLocation{
		PhotoURL:     "https://backend.example.com/photos/" + payload.UserID,
		SubmissionID: "sub-1",
	}, nil
}

func (f *switchableUploader) setFailure(err error) {
	f.mu.Lock()
	f.failWith = err
	f.mu.Unlock()
}

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	up := &switchableUploader{}
	notifier := notifications.NewService(cfg)
	mgr := syncer.NewManager(cfg, store, up, notifier, nil, logger)

	d, err := daemon.New(cfg, store, mgr, notifier, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if !status.Online {
		t.Fatal("expected daemon to report online without a watcher")
	}

	submitResp, err := client.Submit(ipc.SubmitRequest{
		UserID:      "user-1",
		ChallengeID: 7,
		FileName:    "beach.jpg",
		Title:       "Beach",
		Content:     []byte{1, 2, 3},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !submitResp.Delivered || submitResp.SubmissionID != "sub-1" {
		t.Fatalf("expected immediate delivery, got %#v", submitResp)
	}

	if _, err := client.Submit(ipc.SubmitRequest{UserID: "user-1"}); err == nil {
		t.Fatal("expected error for submission without content")
	}

	up.setFailure(uploader.ErrNetworkUnreachable)

	queuedResp, err := client.Submit(ipc.SubmitRequest{
		UserID:      "user-1",
		ChallengeID: 8,
		FileName:    "forest.jpg",
		Title:       "Forest",
		Content:     []byte{4, 5, 6},
	})
	if err != nil {
		t.Fatalf("Submit (queued) failed: %v", err)
	}
	if queuedResp.Delivered || queuedResp.UploadID == "" {
		t.Fatalf("expected queued submission, got %#v", queuedResp)
	}

	listResp, err := client.QueueList()
	if err != nil {
		t.Fatalf("QueueList failed: %v", err)
	}
	if len(listResp.Items) != 1 {
		t.Fatalf("expected 1 queued item, got %d", len(listResp.Items))
	}
	item := listResp.Items[0]
	if item.ID != queuedResp.UploadID || item.Title != "Forest" || item.SizeBytes != 3 {
		t.Fatalf("unexpected queue item: %#v", item)
	}

	syncResp, err := client.Sync()
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !syncResp.Scheduled {
		t.Fatal("expected sync to be scheduled")
	}

	healthResp, err := client.QueueHealth()
	if err != nil {
		t.Fatalf("QueueHealth failed: %v", err)
	}
	if healthResp.Pending != 1 {
		t.Fatalf("expected 1 pending upload, got %d", healthResp.Pending)
	}

	dbHealth, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth failed: %v", err)
	}
	if !strings.HasSuffix(dbHealth.DBPath, "uploads.db") {
		t.Fatalf("unexpected db path: %s", dbHealth.DBPath)
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if notifyResp.Sent || notifyResp.Message == "" {
		t.Fatalf("expected unsent notification with message, got %#v", notifyResp)
	}

	removeResp, err := client.QueueRemove([]string{queuedResp.UploadID})
	if err != nil {
		t.Fatalf("QueueRemove failed: %v", err)
	}
	if removeResp.Removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removeResp.Removed)
	}

	if _, err := client.QueueRemove(nil); err == nil {
		t.Fatal("expected error for remove without ids")
	}

	clearResp, err := client.QueueClear()
	if err != nil {
		t.Fatalf("QueueClear failed: %v", err)
	}
	if clearResp.Removed != 0 {
		t.Fatalf("expected empty queue on clear, got %d", clearResp.Removed)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop RPC failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatal("expected stop response to be true")
	}

	status2, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if status2.Running {
		t.Fatal("expected daemon to be stopped")
	}
}
