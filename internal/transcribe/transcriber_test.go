package transcribe_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/services"
	"notesmith/internal/stage"
	"notesmith/internal/transcribe"
	"notesmith/internal/transcript"
)

type fakeProvider struct {
	segments []transcript.Segment
	err      error
	calls    int
	pingErr  error
}

func (f *fakeProvider) Transcribe(context.Context, string) ([]transcript.Segment, error) {
	f.calls++
	return f.segments, f.err
}

func (f *fakeProvider) Ping(context.Context) error { return f.pingErr }

func mediaJob(t *testing.T) *queue.Job {
	t.Helper()
	path := filepath.Join(t.TempDir(), "media.m4a")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write media: %v", err)
	}
	return &queue.Job{ID: "job-1", SourceRef: "https://v/1", MediaID: "media", MediaPath: path}
}

func TestExecuteWritesCanonicalTranscript(t *testing.T) {
	provider := &fakeProvider{segments: []transcript.Segment{
		{Start: 0, End: 2.5, Text: " Hello\nthere "},
		{Start: 2.5, End: 5, Text: "General concepts."},
	}}
	tr := transcribe.NewWithProvider(provider, logging.NewNop())
	job := mediaJob(t)

	result := tr.Execute(context.Background(), job)
	if !result.OK() {
		t.Fatalf("expected success, got %v", result.Failure)
	}
	updated := result.Patch.Apply(*job)
	want := "[0.00s -> 2.50s] Hello there\n[2.50s -> 5.00s] General concepts."
	if updated.Transcript != want {
		t.Fatalf("unexpected transcript:\n got %q\nwant %q", updated.Transcript, want)
	}
	if result.Summary != "transcribed 2 segments" {
		t.Fatalf("unexpected summary %q", result.Summary)
	}
}

func TestExecuteMissingMediaIsPrecondition(t *testing.T) {
	provider := &fakeProvider{}
	tr := transcribe.NewWithProvider(provider, logging.NewNop())
	job := &queue.Job{ID: "job-1", SourceRef: "https://v/1", MediaPath: filepath.Join(t.TempDir(), "gone.m4a")}

	result := tr.Execute(context.Background(), job)
	if result.OK() || result.Failure.Kind != stage.KindPreconditionMissing || result.Failure.Retryable {
		t.Fatalf("expected non-retryable precondition failure, got %+v", result.Failure)
	}
	if provider.calls != 0 {
		t.Fatal("provider should not be called without media")
	}
}

func TestExecuteEmptyTranscriptIsRetryableRejection(t *testing.T) {
	tr := transcribe.NewWithProvider(&fakeProvider{}, logging.NewNop())
	result := tr.Execute(context.Background(), mediaJob(t))
	if result.OK() || result.Failure.Kind != stage.KindProviderRejected || !result.Failure.Retryable {
		t.Fatalf("expected retryable rejection, got %+v", result.Failure)
	}
	if result.Failure.Error() != "empty transcript" {
		t.Fatalf("unexpected message %q", result.Failure.Error())
	}
}

func TestExecuteMapsProviderErrors(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		kind      stage.FailureKind
		retryable bool
	}{
		{"server error", &services.ProviderError{Provider: "whisper", StatusCode: http.StatusBadGateway}, stage.KindProviderTransient, true},
		{"bad request", &services.ProviderError{Provider: "whisper", StatusCode: http.StatusUnsupportedMediaType}, stage.KindProviderRejected, false},
		{"connection", services.Wrap(services.ErrTransient, "transcribe", "whisper", "http error", errors.New("refused")), stage.KindProviderTransient, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := transcribe.NewWithProvider(&fakeProvider{err: tc.err}, logging.NewNop())
			result := tr.Execute(context.Background(), mediaJob(t))
			if result.OK() || result.Failure.Kind != tc.kind || result.Failure.Retryable != tc.retryable {
				t.Fatalf("unexpected failure %+v", result.Failure)
			}
		})
	}
}

func TestHealthCheckUsesPing(t *testing.T) {
	provider := &fakeProvider{}
	tr := transcribe.NewWithProvider(provider, logging.NewNop())
	if health := tr.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected ready, got %+v", health)
	}
	provider.pingErr = errors.New("dial tcp: refused")
	if health := tr.HealthCheck(context.Background()); health.Ready {
		t.Fatalf("expected unhealthy, got %+v", health)
	}
}
