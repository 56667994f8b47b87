package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notesmith/internal/config"
)

const userAgent = "notesmith/0.1"

// maxMessageLength keeps pushes readable on phones; ntfy itself accepts 4KB.
const maxMessageLength = 512

// Service is the notification surface used by the workflow and CLI.
type Service interface {
	NotifyNotesReady(ctx context.Context, title, sourceRef string) error
	NotifyJobFailed(ctx context.Context, sourceRef, message string) error
	NotifyFeedQueued(ctx context.Context, feedURL string, queued int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
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
	}
}

// Enabled reports whether svc delivers anything.
func Enabled(svc Service) bool {
	if svc == nil {
		return false
	}
	_, noop := svc.(noopService)
	return !noop
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
	click    string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyNotesReady(ctx context.Context, title, sourceRef string) error {
	title = strings.TrimSpace(title)
	sourceRef = strings.TrimSpace(sourceRef)
	if title == "" {
		title = sourceRef
	}
	return n.send(ctx, payload{
		title:   "notesmith - Notes Ready",
		message: fmt.Sprintf("📝 Notes ready: %s", title),
		tags:    []string{"notesmith", "notes", "completed"},
		click:   clickURL(sourceRef),
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, sourceRef, message string) error {
	sourceRef = strings.TrimSpace(sourceRef)
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	return n.send(ctx, payload{
		title:    "notesmith - Job Failed",
		message:  fmt.Sprintf("❌ %s\n%s", sourceRef, message),
		tags:     []string{"notesmith", "error", "alert"},
		priority: "high",
		click:    clickURL(sourceRef),
	})
}

func (n *ntfyService) NotifyFeedQueued(ctx context.Context, feedURL string, queued int) error {
	feedURL = strings.TrimSpace(feedURL)
	noun := "episodes"
	if queued == 1 {
		noun = "episode"
	}
	return n.send(ctx, payload{
		title:    "notesmith - Feed Imported",
		message:  fmt.Sprintf("📻 %d %s queued from %s", queued, noun, feedURL),
		tags:     []string{"notesmith", "feed", "queued"},
		priority: "low",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "notesmith - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"notesmith", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	message := data.message
	if runes := []rune(message); len(runes) > maxMessageLength {
		message = string(runes[:maxMessageLength-1]) + "…"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(message))
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
	if data.click != "" {
		req.Header.Set("Click", data.click)
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

// clickURL returns ref when it is a web URL ntfy can open.
func clickURL(ref string) string {
	if strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://") {
		return ref
	}
	return ""
}

type noopService struct{}

func (noopService) NotifyNotesReady(context.Context, string, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error  { return nil }
func (noopService) NotifyFeedQueued(context.Context, string, int) error    { return nil }
func (noopService) TestNotification(context.Context) error                 { return nil }
