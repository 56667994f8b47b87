package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"notesmith/internal/config"
	"notesmith/internal/deps"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckFreeSpace("space", dir, 0); !result.Passed {
		t.Fatalf("expected pass with no minimum, got: %s", result.Detail)
	}
	if result := CheckFreeSpace("space", dir, 1<<40); result.Passed {
		t.Fatal("expected failure for an impossible minimum")
	}
	if result := CheckFreeSpace("space", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckTranscription_Reachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result := CheckTranscription(context.Background(), config.Transcription{BaseURL: srv.URL + "/v1/"})
	if !result.Passed {
		t.Fatalf("expected pass for any HTTP answer, got: %s", result.Detail)
	}
}

func TestCheckTranscription_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	result := CheckTranscription(context.Background(), config.Transcription{BaseURL: url})
	if result.Passed {
		t.Fatal("expected failure for closed server")
	}
	if result := CheckTranscription(context.Background(), config.Transcription{}); result.Passed {
		t.Fatal("expected failure for missing base url")
	}
}

func TestCheckLLM(t *testing.T) {
	if result := CheckLLM(config.LLM{}); result.Passed {
		t.Fatal("expected failure without key")
	}
	if result := CheckLLM(config.LLM{APIKey: "k", Model: "m", BaseURL: "https://example.com"}); !result.Passed {
		t.Fatalf("expected pass with key, got: %s", result.Detail)
	}
}

func TestDependencyResultsTreatsOptionalAsPassed(t *testing.T) {
	results := DependencyResults([]deps.Status{
		{Name: "yt-dlp", Available: true, Path: "/usr/bin/yt-dlp"},
		{Name: "FFmpeg", Optional: true, Detail: `binary "ffmpeg" not found`},
		{Name: "other", Detail: "missing"},
	})
	if !results[0].Passed || results[0].Detail != "/usr/bin/yt-dlp" {
		t.Fatalf("unexpected available result: %+v", results[0])
	}
	if !results[1].Passed {
		t.Fatalf("optional dependency should pass: %+v", results[1])
	}
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "other" {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_CoversEveryConcern(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.MediaDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Acquire.MinFreeMB = 0
	cfg.Transcription.BaseURL = srv.URL + "/v1/"
	cfg.LLM.APIKey = "test"

	results := RunAll(context.Background(), &cfg)
	names := make(map[string]Result, len(results))
	for _, r := range results {
		names[r.Name] = r
	}
	for _, name := range []string{"Data directory", "Media directory", "Log directory", "Media free space", "yt-dlp", "FFmpeg", "Transcription endpoint", "LLM"} {
		if _, ok := names[name]; !ok {
			t.Fatalf("expected %q check in results", name)
		}
	}
	for _, name := range []string{"Data directory", "Media directory", "Log directory", "Media free space", "Transcription endpoint", "LLM"} {
		if !names[name].Passed {
			t.Errorf("check %q failed: %s", name, names[name].Detail)
		}
	}
}
