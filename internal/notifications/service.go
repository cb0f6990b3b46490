package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mirrorsync/internal/config"
)

const userAgent = "mirrorsync/0.1.0"

// Service defines the notification surface exposed to the sync components.
// One notification is emitted per non-empty drain cycle; individual item
// failures never notify.
type Service interface {
	NotifySyncCompleted(ctx context.Context, synced, failed int) error
	NotifySyncError(ctx context.Context, err error) error
	NotifyQueuedOffline(ctx context.Context, title string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		printer:  newPrinter(),
	}
}

func init() {
	message.Set(language.English, "%d photo synced",
		plural.Selectf(1, "%d",
			plural.One, "%d photo synced",
			plural.Other, "%d photos synced"))
	message.Set(language.English, "%d failed",
		plural.Selectf(1, "%d",
			plural.One, "%d failed",
			plural.Other, "%d failed"))
	message.Set(language.English, "Failed to sync %d photo",
		plural.Selectf(1, "%d",
			plural.One, "Failed to sync %d photo",
			plural.Other, "Failed to sync %d photos"))
}

func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	printer  *message.Printer
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context, synced, failed int) error {
	data := payload{tags: []string{"mirrorsync", "sync", "completed"}}
	switch {
	case synced > 0 && failed > 0:
		data.title = "Photos Synced"
		data.message = fmt.Sprintf("%s, %s",
			n.printer.Sprintf("%d photo synced", synced),
			n.printer.Sprintf("%d failed", failed))
	case synced > 0:
		data.title = "Photos Synced"
		data.message = n.printer.Sprintf("%d photo synced", synced)
	default:
		data.title = "Sync Failed"
		data.message = n.printer.Sprintf("Failed to sync %d photo", failed)
		data.tags = []string{"mirrorsync", "sync", "failed"}
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncError(ctx context.Context, err error) error {
	msg := "Failed to sync offline photos. Please check your connection."
	if err != nil {
		msg = fmt.Sprintf("%s (%s)", msg, strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Sync Error",
		message:  msg,
		tags:     []string{"mirrorsync", "sync", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueuedOffline(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "photo"
	}
	data := payload{
		title:   "Queued for Sync",
		message: fmt.Sprintf("Saved offline: %s. It will upload when you are back online.", title),
		tags:    []string{"mirrorsync", "queue", "offline"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Mirror Sync - Test",
		message:  "Notification system test",
		tags:     []string{"mirrorsync", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySyncCompleted(context.Context, int, int) error { return nil }
func (noopService) NotifySyncError(context.Context, error) error        { return nil }
func (noopService) NotifyQueuedOffline(context.Context, string) error   { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
