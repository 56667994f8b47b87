package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"notesmith/internal/config"
	"notesmith/internal/logging"
	"notesmith/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigWritesDaemonLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon ready")

	content := readLog(t, filepath.Join(cfg.Paths.LogDir, logging.DaemonLogName))
	if !strings.Contains(content, "daemon ready") {
		t.Fatalf("expected message in daemon log, got %q", content)
	}
}

func TestConsoleLoggerFormatsFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	noColor := false
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
		Color:       &noColor,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "workflow").Info("stage complete",
		logging.String(logging.FieldJobID, "3f1c2a9e-0000-4000-8000-000000000000"),
		logging.String(logging.FieldStage, "transcribe"),
		logging.Int(logging.FieldAttempt, 2),
		logging.String("note", "two words"),
	)
	logger.Debug("hidden")

	content := readLog(t, logPath)
	for _, fragment := range []string{"INFO workflow: [3f1c2a9e] stage complete", "stage=transcribe", "attempt=2", `note="two words"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
	if strings.Contains(content, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("expected no ANSI codes when colour disabled: %q", content)
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("retrying", logging.Error(errors.New("boom")))

	var payload map[string]any
	line := strings.TrimSpace(readLog(t, logPath))
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("decode json log %q: %v", line, err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level: got %v want warn", payload["level"])
	}
	if payload["msg"] != "retrying" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
	if payload["error"] != "boom" {
		t.Fatalf("unexpected error field: %v", payload["error"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithStage(ctx, "acquire")
	ctx = services.WithRequestID(ctx, "req-9")
	logging.WithContext(ctx, logger).Info("hello")

	content := readLog(t, logPath)
	for _, fragment := range []string{`"job_id":"job-1"`, `"stage":"acquire"`, `"correlation_id":"req-9"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %s in %q", fragment, content)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "disk low", "disk_low", logging.String(logging.FieldImpact, "downloads paused"))

	content := readLog(t, logPath)
	for _, fragment := range []string{`"event_type":"disk_low"`, `"error_hint":"check logs for details"`, `"impact":"downloads paused"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %s in %q", fragment, content)
		}
	}
}

func TestCleanupOldLogsKeepsActiveAndRecent(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "notesmithd-old.log")
	recent := filepath.Join(dir, "notesmithd-recent.log")
	active := filepath.Join(dir, logging.DaemonLogName)
	for _, path := range []string{old, recent, active} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, active} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), 5, dir, "notesmithd*.log", active)
	if removed != 1 {
		t.Fatalf("unexpected removed count: got %d want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{recent, active} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s kept: %v", path, err)
		}
	}
}
