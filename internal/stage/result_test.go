package stage_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"notesmith/internal/queue"
	"notesmith/internal/services"
	"notesmith/internal/stage"
)

func TestFromErrorClassification(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		kind      stage.FailureKind
		retryable bool
	}{
		{"rate limited", &services.ProviderError{Provider: "llm", StatusCode: http.StatusTooManyRequests, RetryAfter: time.Second}, stage.KindProviderTransient, true},
		{"bad request", &services.ProviderError{Provider: "whisper", StatusCode: http.StatusBadRequest}, stage.KindProviderRejected, false},
		{"timeout", context.DeadlineExceeded, stage.KindProviderTransient, true},
		{"config", services.Wrap(services.ErrConfiguration, "synthesize", "llm", "no key", nil), stage.KindProviderRejected, false},
		{"not found", services.Wrap(services.ErrNotFound, "", "get", "job", nil), stage.KindNotFound, false},
		{"canceled", context.Canceled, stage.KindProviderTransient, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			failure := stage.FromError("call failed", tc.err)
			if failure.Kind != tc.kind || failure.Retryable != tc.retryable {
				t.Fatalf("unexpected failure: got kind=%s retryable=%v want kind=%s retryable=%v", failure.Kind, failure.Retryable, tc.kind, tc.retryable)
			}
			if !errors.Is(failure, tc.err) {
				t.Fatalf("expected failure to unwrap to %v", tc.err)
			}
		})
	}
}

func TestFromErrorKeepsRetryAfter(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &services.ProviderError{Provider: "llm", StatusCode: 503, RetryAfter: 7 * time.Second})
	failure := stage.FromError("generate", err)
	if failure.RetryAfter != 7*time.Second {
		t.Fatalf("unexpected retry-after: %s", failure.RetryAfter)
	}
}

func TestFromErrorPassesThroughFailure(t *testing.T) {
	original := stage.PreconditionMissing("media missing", nil)
	if got := stage.FromError("ignored", fmt.Errorf("ctx: %w", original)); got != original {
		t.Fatalf("expected the original failure, got %+v", got)
	}
}

func TestFailureErrorText(t *testing.T) {
	failure := stage.Transient("transcription request failed", errors.New("connection refused"), 0)
	if got := failure.Error(); got != "transcription request failed: connection refused" {
		t.Fatalf("unexpected error text: %q", got)
	}
	if got := stage.Rejected("empty transcript", nil, true).Error(); got != "empty transcript" {
		t.Fatalf("unexpected error text: %q", got)
	}
}

func TestResultShapes(t *testing.T) {
	ok := stage.Success("downloaded", queue.Patch{}.WithStage("acquire"))
	if !ok.OK() || ok.Summary != "downloaded" {
		t.Fatalf("unexpected success result: %+v", ok)
	}
	failed := stage.Fail(nil)
	if failed.OK() || !failed.Failure.Retryable {
		t.Fatalf("unexpected fallback failure: %+v", failed)
	}
}

func TestNameOrderAndLabels(t *testing.T) {
	if stage.Acquire.Next() != stage.Transcribe || stage.Transcribe.Next() != stage.Synthesize || stage.Synthesize.Next() != "" {
		t.Fatal("unexpected stage order")
	}
	if got := stage.Synthesize.Label(); got != "Synthesize" {
		t.Fatalf("unexpected label: %q", got)
	}
	if name, ok := stage.ParseName(" Transcribe "); !ok || name != stage.Transcribe {
		t.Fatalf("unexpected parse: %q %v", name, ok)
	}
}

func TestExhaustedKeepsCause(t *testing.T) {
	cause := errors.New("503 from provider")
	last := stage.Transient("transcription request failed", cause, 2*time.Second)
	failure := stage.Exhausted(last)
	if failure.Kind != stage.KindExhausted || failure.Retryable {
		t.Fatalf("unexpected failure: kind=%s retryable=%v", failure.Kind, failure.Retryable)
	}
	if failure.Error() != last.Error() || !errors.Is(failure, cause) {
		t.Fatalf("exhausted failure lost its cause: %q", failure.Error())
	}
	if got := stage.Exhausted(nil).Error(); got != "retry budget exhausted" {
		t.Fatalf("unexpected text for nil failure: %q", got)
	}
}
