package acquire_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notesmith/internal/acquire"
	"notesmith/internal/fileutil"
	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/services"
	"notesmith/internal/services/ytdlp"
	"notesmith/internal/stage"
	"notesmith/internal/testsupport"
)

type fakeFetcher struct {
	dests []string
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, dest string) (string, string, error) {
	f.dests = append(f.dests, dest)
	if f.err != nil {
		return "", "", f.err
	}
	location := strings.TrimSuffix(dest, ".%(ext)s") + ".m4a"
	if err := os.WriteFile(location, []byte("audio"), 0o644); err != nil {
		return "", "", err
	}
	return ytdlp.MediaIDFromTemplate(dest), location, nil
}

func plentyOfSpace(string) (fileutil.Space, error) {
	return fileutil.Space{TotalBytes: 10 << 30, FreeBytes: 5 << 30}, nil
}

func TestExecuteProducesMediaPatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := &fakeFetcher{}
	acq := acquire.New(cfg, logging.NewNop(), acquire.WithFetcher(fetcher), acquire.WithDiskSpace(plentyOfSpace))

	job := &queue.Job{ID: "job-1", SourceRef: "https://v/1"}
	result := acq.Execute(context.Background(), job)
	if !result.OK() {
		t.Fatalf("expected success, got %v", result.Failure)
	}

	updated := result.Patch.Apply(*job)
	if updated.MediaID == "" || !strings.HasPrefix(updated.MediaPath, cfg.Paths.MediaDir) {
		t.Fatalf("unexpected media fields: id=%q path=%q", updated.MediaID, updated.MediaPath)
	}
	if filepath.Base(updated.MediaPath) != updated.MediaID+".m4a" {
		t.Fatalf("media id %q does not name file %q", updated.MediaID, updated.MediaPath)
	}
}

func TestExecuteUsesFreshDestinationPerAttempt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := &fakeFetcher{err: services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", "network", nil)}
	acq := acquire.New(cfg, logging.NewNop(), acquire.WithFetcher(fetcher), acquire.WithDiskSpace(plentyOfSpace))

	job := &queue.Job{ID: "job-1", SourceRef: "https://v/1"}
	for range 2 {
		result := acq.Execute(context.Background(), job)
		if result.OK() || !result.Failure.Retryable || result.Failure.Kind != stage.KindProviderTransient {
			t.Fatalf("expected retryable transient failure, got %+v", result.Failure)
		}
	}
	if len(fetcher.dests) != 2 || fetcher.dests[0] == fetcher.dests[1] {
		t.Fatalf("expected distinct destinations, got %v", fetcher.dests)
	}
	for _, dest := range fetcher.dests {
		if !strings.HasSuffix(dest, ".%(ext)s") {
			t.Fatalf("unexpected destination template %q", dest)
		}
	}
}

func TestExecuteClassifiesFailures(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"unavailable", errors.Join(ytdlp.ErrUnavailable, errors.New("Private video")), false},
		{"missing binary", services.Wrap(services.ErrConfiguration, "acquire", "yt-dlp", "binary not found", nil), false},
		{"timeout", services.Wrap(services.ErrTimeout, "acquire", "yt-dlp", "download timed out", context.DeadlineExceeded), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			acq := acquire.New(cfg, logging.NewNop(), acquire.WithFetcher(&fakeFetcher{err: tc.err}), acquire.WithDiskSpace(plentyOfSpace))
			result := acq.Execute(context.Background(), &queue.Job{ID: "job-1", SourceRef: "https://v/1"})
			if result.OK() {
				t.Fatal("expected failure")
			}
			if result.Failure.Retryable != tc.retryable {
				t.Fatalf("unexpected retryable: got %v want %v (%v)", result.Failure.Retryable, tc.retryable, result.Failure)
			}
		})
	}
}

func TestExecuteDefersWhenDiskIsLow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Acquire.MinFreeMB = 1024
	fetcher := &fakeFetcher{}
	lowSpace := func(string) (fileutil.Space, error) {
		return fileutil.Space{TotalBytes: 10 << 30, FreeBytes: 100 << 20}, nil
	}
	acq := acquire.New(cfg, logging.NewNop(), acquire.WithFetcher(fetcher), acquire.WithDiskSpace(lowSpace))

	result := acq.Execute(context.Background(), &queue.Job{ID: "job-1", SourceRef: "https://v/1"})
	if result.OK() || result.Failure.Kind != stage.KindProviderTransient || !result.Failure.Retryable {
		t.Fatalf("expected retryable transient failure, got %+v", result.Failure)
	}
	if !strings.Contains(result.Failure.Error(), "100 MB available") {
		t.Fatalf("unexpected message: %q", result.Failure.Error())
	}
	if len(fetcher.dests) != 0 {
		t.Fatal("fetcher should not run when space is low")
	}
}

func TestHealthCheckRequiresBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if health := acquire.New(cfg, logging.NewNop()).HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected ready, got %+v", health)
	}

	cfg.Acquire.Binary = "definitely-not-installed-ytdlp"
	if health := acquire.New(cfg, logging.NewNop()).HealthCheck(context.Background()); health.Ready {
		t.Fatalf("expected unhealthy, got %+v", health)
	}
}

type silentFetcher struct{ calls int }

func (f *silentFetcher) Fetch(context.Context, string, string) (string, string, error) {
	f.calls++
	return "media-1", "", nil
}

func TestExecuteRejectsMissingLocation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := &silentFetcher{}
	acq := acquire.New(cfg, logging.NewNop(), acquire.WithFetcher(fetcher), acquire.WithDiskSpace(plentyOfSpace))

	result := acq.Execute(context.Background(), &queue.Job{ID: "job-1", SourceRef: "https://v/1"})
	if result.OK() {
		t.Fatalf("expected failure when the downloader reports no file, got patch %+v", result.Patch)
	}
	if result.Failure.Retryable || result.Failure.Kind != stage.KindProviderRejected {
		t.Fatalf("unexpected failure: kind=%s retryable=%v", result.Failure.Kind, result.Failure.Retryable)
	}
	if fetcher.calls != 1 {
		t.Fatalf("unexpected fetch calls: got %d want 1", fetcher.calls)
	}
}
