package uploader_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"mirrorsync/internal/logging"
	"mirrorsync/internal/queue"
	"mirrorsync/internal/testsupport"
	"mirrorsync/internal/uploader"
)

type recordedRequest struct {
	method string
	path   string
	auth   string
	apiKey string
	body   []byte
}

type backend struct {
	mu         sync.Mutex
	requests   []recordedRequest
	objectCode int
	rpcCode    int
	rpcBody    string
}

func newBackend() *backend {
	return &backend{
		objectCode: http.StatusOK,
		rpcCode:    http.StatusOK,
		rpcBody:    `{"success": true, "message": "ok", "submission_id": "sub-123"}`,
	}
}

func (b *backend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		b.mu.Lock()
		b.requests = append(b.requests, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			apiKey: r.Header.Get("apikey"),
			body:   body,
		})
		objectCode, rpcCode, rpcBody := b.objectCode, b.rpcCode, b.rpcBody
		b.mu.Unlock()

		switch {
		case r.URL.Path == "/rest/v1/rpc/create_submission":
			w.WriteHeader(rpcCode)
			io.WriteString(w, rpcBody)
		default:
			w.WriteHeader(objectCode)
		}
	})
}

func (b *backend) recorded() []recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedRequest(nil), b.requests...)
}

func newTestClient(t *testing.T, baseURL string) *uploader.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithRemote(baseURL, "secret-key"))
	return uploader.NewClient(cfg, logging.NewNop())
}

func samplePayload() queue.Payload {
	lat := 52.52
	return queue.Payload{
		UserID:      "user-1",
		ChallengeID: 42,
		FileName:    "shot.png",
		Title:       "Sunset",
		Note:        "from the pier",
		Latitude:    &lat,
		Content:     []byte{0x89, 0x50, 0x4E, 0x47},
	}
}

func TestDeliverRunsBothPhasesInOrder(t *testing.T) {
	be := newBackend()
	server := httptest.NewServer(be.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	location, err := client.Deliver(context.Background(), samplePayload())
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if location.SubmissionID != "sub-123" {
		t.Fatalf("unexpected submission id: %q", location.SubmissionID)
	}
	wantURL := server.URL + "/storage/v1/object/public/submission/user-1/42/original.png"
	if location.PhotoURL != wantURL {
		t.Fatalf("unexpected photo url: %q", location.PhotoURL)
	}

	requests := be.recorded()
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	if requests[0].path != "/storage/v1/object/submission/user-1/42/original.png" {
		t.Fatalf("unexpected object path: %s", requests[0].path)
	}
	if requests[1].path != "/rest/v1/rpc/create_submission" {
		t.Fatalf("unexpected rpc path: %s", requests[1].path)
	}
	for _, req := range requests {
		if req.auth != "Bearer secret-key" || req.apiKey != "secret-key" {
			t.Fatalf("missing auth headers on %s", req.path)
		}
	}

	var rpc map[string]any
	if err := json.Unmarshal(requests[1].body, &rpc); err != nil {
		t.Fatalf("decode rpc body: %v", err)
	}
	if rpc["p_user_id"] != "user-1" || rpc["p_photo_url"] != wantURL {
		t.Fatalf("unexpected rpc body: %v", rpc)
	}
	if rpc["p_note"] != "from the pier" {
		t.Fatalf("expected note to be forwarded, got %v", rpc["p_note"])
	}
	if _, present := rpc["p_location_lng"]; !present {
		t.Fatal("expected longitude key present even when nil")
	}
}

func TestDeliverSkipsMetadataWhenObjectWriteFails(t *testing.T) {
	be := newBackend()
	be.objectCode = http.StatusInternalServerError
	server := httptest.NewServer(be.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Deliver(context.Background(), samplePayload())

	var storeErr *uploader.ObjectStoreError
	if !errors.As(err, &storeErr) || storeErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected ObjectStoreError 500, got %v", err)
	}
	if requests := be.recorded(); len(requests) != 1 {
		t.Fatalf("expected metadata phase to be skipped, saw %d requests", len(requests))
	}
	if !uploader.Retryable(err) {
		t.Fatal("expected object store failure to be retryable")
	}
}

func TestDeliverReportsMetadataFailure(t *testing.T) {
	be := newBackend()
	be.rpcCode = http.StatusBadGateway
	server := httptest.NewServer(be.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Deliver(context.Background(), samplePayload())

	var metaErr *uploader.MetadataError
	if !errors.As(err, &metaErr) || metaErr.Status != http.StatusBadGateway {
		t.Fatalf("expected MetadataError 502, got %v", err)
	}
	if !uploader.Retryable(err) {
		t.Fatal("expected metadata failure to be retryable")
	}
}

func TestDeliverRejectedSubmission(t *testing.T) {
	be := newBackend()
	be.rpcBody = `{"success": false, "message": "challenge closed"}`
	server := httptest.NewServer(be.handler())
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Deliver(context.Background(), samplePayload())
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if uploader.Retryable(err) {
		t.Fatal("expected rejected submission not to be retryable")
	}
}

func TestDeliverWrapsTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Deliver(context.Background(), samplePayload())
	if !errors.Is(err, uploader.ErrNetworkUnreachable) {
		t.Fatalf("expected ErrNetworkUnreachable, got %v", err)
	}
}

func TestObjectPathIsDeterministic(t *testing.T) {
	payload := samplePayload()
	first := uploader.ObjectPath(payload)
	second := uploader.ObjectPath(payload)
	if first != second {
		t.Fatalf("object path changed between calls: %q vs %q", first, second)
	}
	if first != "user-1/42/original.png" {
		t.Fatalf("unexpected object path: %q", first)
	}

	payload.FileName = "noextension"
	if got := uploader.ObjectPath(payload); got != "user-1/42/original.jpg" {
		t.Fatalf("expected jpg fallback, got %q", got)
	}
}
