package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"triage/internal/config"
)

const userAgent = "Triage/0.1.0"

// Event identifies a notification category. Config toggles decide which
// events actually reach the topic.
type Event string

const (
	EventBatchStarted   Event = "batch_started"
	EventBatchCompleted Event = "batch_completed"
	EventItemFailed     Event = "item_failed"
	EventManualReview   Event = "manual_review"
	EventTest           Event = "test"
)

// Payload carries event-specific fields rendered into the message body.
type Payload map[string]string

// Service publishes pipeline events. Implementations must be safe for
// concurrent use by workflow workers.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		batchEvents: cfg.Notifications.Batch,
		errorEvents: cfg.Notifications.Errors,
	}
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	batchEvents bool
	errorEvents bool
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, enabled := n.render(event, payload)
	if !enabled {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	get := func(key string) string { return strings.TrimSpace(payload[key]) }

	switch event {
	case EventBatchStarted:
		return message{
			title: "Triage - Batch Started",
			body:  fmt.Sprintf("Started processing %s feedback items (batch %s)", get("count"), get("batch_id")),
			tags:  []string{"triage", "batch", "started"},
		}, n.batchEvents

	case EventBatchCompleted:
		body := fmt.Sprintf("Batch %s complete: %s accepted, %s rejected, %s failed in %s",
			get("batch_id"), get("accepted"), get("rejected"), get("failed"), get("duration"))
		msg := message{
			title: "Triage - Batch Complete",
			body:  body,
			tags:  []string{"triage", "batch", "completed"},
		}
		if get("failed") != "0" {
			msg.title = "Triage - Batch Complete (with failures)"
			msg.priority = "high"
		}
		return msg, n.batchEvents

	case EventItemFailed:
		return message{
			title:    "Triage - Item Failed",
			body:     fmt.Sprintf("Feedback %s failed: %s", get("feedback_id"), get("reason")),
			tags:     []string{"triage", "error", "alert"},
			priority: "high",
		}, n.errorEvents

	case EventManualReview:
		return message{
			title: "Triage - Manual Review",
			body:  fmt.Sprintf("Feedback %s needs manual review: %s", get("feedback_id"), get("reason")),
			tags:  []string{"triage", "review"},
		}, n.errorEvents

	case EventTest:
		return message{
			title:    "Triage - Test",
			body:     "Notification system test",
			tags:     []string{"triage", "test"},
			priority: "low",
		}, true

	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
