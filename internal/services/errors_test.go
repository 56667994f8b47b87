package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"notesmith/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", "download failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"acquire", "yt-dlp", "download failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want services.ErrorKind
	}{
		{services.Wrap(services.ErrNotFound, "", "get", "job missing", nil), services.KindNotFound},
		{services.Wrap(services.ErrValidation, "", "submit", "bad url", nil), services.KindValidation},
		{services.Wrap(services.ErrConflict, "", "retry", "busy", nil), services.KindConflict},
		{services.Wrap(services.ErrTimeout, "transcribe", "post", "slow", nil), services.KindTransient},
		{errors.New("plain"), services.KindInternal},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := services.Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v): got %q want %q", tc.err, got, tc.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	rateLimited := &services.ProviderError{Provider: "llm", StatusCode: http.StatusTooManyRequests, RetryAfter: 3 * time.Second}
	if !services.IsTransient(fmt.Errorf("wrapped: %w", rateLimited)) {
		t.Fatal("expected 429 to be transient")
	}
	if got := services.RetryAfterHint(fmt.Errorf("wrapped: %w", rateLimited)); got != 3*time.Second {
		t.Fatalf("unexpected retry-after hint: %s", got)
	}
	if services.IsTransient(&services.ProviderError{Provider: "llm", StatusCode: http.StatusForbidden}) {
		t.Fatal("expected 403 to be fatal")
	}
	if !services.IsTransient(&services.ProviderError{Provider: "whisper", StatusCode: http.StatusBadGateway}) {
		t.Fatal("expected 502 to be transient")
	}
	if services.IsTransient(context.Canceled) {
		t.Fatal("cancellation must not be transient")
	}
	if !services.IsTransient(context.DeadlineExceeded) {
		t.Fatal("deadline exceeded should be transient")
	}
	if services.IsTransient(services.Wrap(services.ErrValidation, "", "", "bad", nil)) {
		t.Fatal("validation errors are not transient")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := services.ParseRetryAfter("7"); !ok || d != 7*time.Second {
		t.Fatalf("unexpected seconds parse: %v %v", d, ok)
	}
	if _, ok := services.ParseRetryAfter("-1"); ok {
		t.Fatal("negative values should be rejected")
	}
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if d, ok := services.ParseRetryAfter(future); !ok || d <= 0 {
		t.Fatalf("unexpected date parse: %v %v", d, ok)
	}
	if _, ok := services.ParseRetryAfter("soon"); ok {
		t.Fatal("garbage should be rejected")
	}
}

func TestSummarizeSnippetTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := services.SummarizeSnippet(long)
	if !strings.HasSuffix(got, `..."`) {
		t.Fatalf("expected truncated snippet, got %s", got)
	}
	if services.SummarizeSnippet("  ") != `""` {
		t.Fatal("expected empty marker for blank body")
	}
}
