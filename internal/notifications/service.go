package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"batchproc/internal/config"
)

const userAgent = "batchproc/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventQueueStarted   Event = "queue_started"
	EventQueueCompleted Event = "queue_completed"
	EventQueueHalted    Event = "queue_halted"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event specific values.
type Payload map[string]any

// Service defines the notification surface exposed to the driver.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
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
		queue:    cfg.Notifications.Queue,
		errors:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	queue    bool
	errors   bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventQueueStarted:
		if !n.queue {
			return message{}, false
		}
		return message{
			title: "batchproc - Queue Started",
			body:  fmt.Sprintf("Started run %s with %d queued processes", payloadString(payload, "runID"), payloadInt(payload, "count")),
			tags:  []string{"batchproc", "queue", "started"},
		}, true
	case EventQueueCompleted:
		if !n.queue {
			return message{}, false
		}
		duration := payloadDuration(payload, "duration")
		return message{
			title: "batchproc - Queue Complete",
			body:  fmt.Sprintf("Queue drained: %d processes succeeded in %s", payloadInt(payload, "processed"), duration),
			tags:  []string{"batchproc", "queue", "completed"},
		}, true
	case EventQueueHalted:
		if !n.queue {
			return message{}, false
		}
		body := fmt.Sprintf("Queue halted at %s (%s)", payloadString(payload, "process"), payloadString(payload, "result"))
		if detail := payloadString(payload, "message"); detail != "" {
			body += ": " + detail
		}
		if remaining := payloadInt(payload, "remaining"); remaining > 0 {
			body += fmt.Sprintf("\n%d processes not started", remaining)
		}
		return message{
			title:    "batchproc - Queue Halted",
			body:     body,
			tags:     []string{"batchproc", "queue", "halted"},
			priority: "high",
		}, true
	case EventError:
		if !n.errors {
			return message{}, false
		}
		var builder strings.Builder
		builder.WriteString("Error")
		if label := payloadString(payload, "context"); label != "" {
			builder.WriteString(" in ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if detail := payloadString(payload, "error"); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "batchproc - Error",
			body:     builder.String(),
			tags:     []string{"batchproc", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "batchproc - Test",
			body:     "Notification system test",
			tags:     []string{"batchproc", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
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
	if msg.priority != "" {
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

func payloadString(p Payload, key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func payloadInt(p Payload, key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func payloadDuration(p Payload, key string) time.Duration {
	d, _ := p[key].(time.Duration)
	d = d.Round(time.Second)
	if d < 0 {
		return 0
	}
	return d
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
