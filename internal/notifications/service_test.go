package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"notesmith/internal/config"
	"notesmith/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	click    string
	body     string
}

func newNtfyServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		got.click = r.Header.Get("Click")
		body, _ := io.ReadAll(r.Body)
		got.body = string(body)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("topic rejected"))
	}))
	t.Cleanup(server.Close)
	return server, got
}

func serviceFor(topic string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.RequestTimeout = 5
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := serviceFor("")
	if notifications.Enabled(svc) {
		t.Fatal("expected noop service without topic")
	}
	if err := svc.NotifyNotesReady(context.Background(), "Episode", "https://example.com/a"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if notifications.Enabled(notifications.NewService(nil)) {
		t.Fatal("expected noop service for nil config")
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
		expectClick    string
	}{
		{
			name: "notes ready",
			send: func(s notifications.Service) error {
				return s.NotifyNotesReady(context.Background(), "Deep Work", "https://youtu.be/abc")
			},
			expectTitle:   "notesmith - Notes Ready",
			expectMessage: "📝 Notes ready: Deep Work",
			expectTags:    "notesmith,notes,completed",
			expectClick:   "https://youtu.be/abc",
		},
		{
			name: "notes ready falls back to source",
			send: func(s notifications.Service) error {
				return s.NotifyNotesReady(context.Background(), " ", "/media/talk.mp3")
			},
			expectTitle:   "notesmith - Notes Ready",
			expectMessage: "📝 Notes ready: /media/talk.mp3",
			expectTags:    "notesmith,notes,completed",
		},
		{
			name: "job failed",
			send: func(s notifications.Service) error {
				return s.NotifyJobFailed(context.Background(), "https://youtu.be/abc", "transcribe failed after 3 attempts: timeout")
			},
			expectTitle:    "notesmith - Job Failed",
			expectMessage:  "❌ https://youtu.be/abc\ntranscribe failed after 3 attempts: timeout",
			expectTags:     "notesmith,error,alert",
			expectPriority: "high",
			expectClick:    "https://youtu.be/abc",
		},
		{
			name: "feed queued",
			send: func(s notifications.Service) error {
				return s.NotifyFeedQueued(context.Background(), "https://example.com/feed.xml", 1)
			},
			expectTitle:    "notesmith - Feed Imported",
			expectMessage:  "📻 1 episode queued from https://example.com/feed.xml",
			expectTags:     "notesmith,feed,queued",
			expectPriority: "low",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "notesmith - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "notesmith,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newNtfyServer(t, http.StatusOK)
			if err := tc.send(serviceFor(server.URL)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
			if got.click != tc.expectClick {
				t.Fatalf("expected click %q, got %q", tc.expectClick, got.click)
			}
		})
	}
}

func TestNtfyServiceTruncatesLongMessages(t *testing.T) {
	server, got := newNtfyServer(t, http.StatusOK)
	long := strings.Repeat("x", 2000)
	if err := serviceFor(server.URL).NotifyJobFailed(context.Background(), "ref", long); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}
	if n := len([]rune(got.body)); n != 512 {
		t.Fatalf("expected truncated body of 512 runes, got %d", n)
	}
	if !strings.HasSuffix(got.body, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got.body[len(got.body)-8:])
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := newNtfyServer(t, http.StatusForbidden)
	err := serviceFor(server.URL).TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "ntfy returned 403: topic rejected") {
		t.Fatalf("unexpected error: %v", err)
	}
}
