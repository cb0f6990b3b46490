package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"mirrorsync/internal/config"
	"mirrorsync/internal/logging"
	"mirrorsync/internal/queue"
)

const userAgent = "mirrorsync/0.1.0"

// RemoteLocation identifies where a delivered submission landed.
type RemoteLocation struct {
	PhotoURL     string
	SubmissionID string
}

// Uploader performs the two-phase remote write for one pending upload.
type Uploader interface {
	Deliver(ctx context.Context, payload queue.Payload) (RemoteLocation, error)
}

// HTTPDoer describes the HTTP client used by the uploader.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client delivers submissions to the managed backend: a storage object write
// followed by the create_submission RPC. Both must succeed; the RPC is never
// attempted when the object write fails.
type Client struct {
	baseURL string
	apiKey  string
	bucket  string
	client  HTTPDoer
	logger  *slog.Logger
}

// NewClient builds an uploader from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewClientWithDoer(cfg, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithDoer builds an uploader with an injected HTTP client (used in tests).
func NewClientWithDoer(cfg *config.Config, doer HTTPDoer, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Remote.BaseURL, "/"),
		apiKey:  cfg.Remote.APIKey,
		bucket:  cfg.Remote.Bucket,
		client:  doer,
		logger:  logging.NewComponentLogger(logger, "uploader"),
	}
}

// ObjectPath returns the deterministic storage path for a submission. Retries
// of the same logical submission land on the same path and overwrite any
// earlier partial write.
func ObjectPath(payload queue.Payload) string {
	ext := strings.TrimPrefix(path.Ext(payload.FileName), ".")
	if ext == "" {
		ext = "jpg"
	}
	return fmt.Sprintf("%s/%d/original.%s", payload.UserID, payload.ChallengeID, ext)
}

// ProbeURL returns the endpoint used by the connectivity watcher.
func (c *Client) ProbeURL() string {
	return c.baseURL + "/storage/v1/version"
}

// Deliver uploads the photo object and registers the submission metadata.
func (c *Client) Deliver(ctx context.Context, payload queue.Payload) (RemoteLocation, error) {
	objectPath := ObjectPath(payload)

	photoURL, err := c.putObject(ctx, objectPath, payload)
	if err != nil {
		return RemoteLocation{}, err
	}

	submissionID, err := c.createSubmission(ctx, photoURL, payload)
	if err != nil {
		return RemoteLocation{}, err
	}

	c.logger.Debug("submission delivered",
		logging.String("object_path", objectPath),
		logging.String("submission_id", submissionID),
	)
	return RemoteLocation{PhotoURL: photoURL, SubmissionID: submissionID}, nil
}

func (c *Client) putObject(ctx context.Context, objectPath string, payload queue.Payload) (string, error) {
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(payload.Content))
	if err != nil {
		return "", fmt.Errorf("build object request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", contentTypeFor(payload.FileName))
	// Overwrite any object left by an earlier partial delivery.
	req.Header.Set("x-upsert", "true")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: object write: %w", ErrNetworkUnreachable, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode >= 300 {
		return "", &ObjectStoreError{Status: resp.StatusCode}
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, objectPath), nil
}

type submissionRequest struct {
	UserID      string   `json:"p_user_id"`
	ChallengeID int64    `json:"p_challenge_id"`
	PhotoURL    string   `json:"p_photo_url"`
	Title       string   `json:"p_title"`
	Note        *string  `json:"p_note"`
	LocationLat *float64 `json:"p_location_lat"`
	LocationLng *float64 `json:"p_location_lng"`
}

type submissionResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SubmissionID string `json:"submission_id"`
}

func (c *Client) createSubmission(ctx context.Context, photoURL string, payload queue.Payload) (string, error) {
	body := submissionRequest{
		UserID:      payload.UserID,
		ChallengeID: payload.ChallengeID,
		PhotoURL:    photoURL,
		Title:       payload.Title,
		LocationLat: payload.Latitude,
		LocationLng: payload.Longitude,
	}
	if payload.Note != "" {
		note := payload.Note
		body.Note = &note
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}

	rpcURL := c.baseURL + "/rest/v1/rpc/create_submission"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rpcURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build submission request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: metadata registration: %w", ErrNetworkUnreachable, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode >= 300 {
		return "", &MetadataError{Status: resp.StatusCode}
	}

	var decoded submissionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode submission response: %w", err)
	}
	if !decoded.Success {
		return "", fmt.Errorf("submission rejected: %s", decoded.Message)
	}
	return decoded.SubmissionID, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("apikey", c.apiKey)
}

func contentTypeFor(fileName string) string {
	if ct := mime.TypeByExtension(path.Ext(fileName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
	_ = body.Close()
}
