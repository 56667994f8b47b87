package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"notesmith/internal/api"
	"notesmith/internal/config"
	"notesmith/internal/daemon"
)

func TestStatusCommandReportsChecksAndCounts(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, nil, "submit", "https://example.com/talk/5"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	out, err := env.run(t, nil, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "[WARN] Not running")
	requireContains(t, out, "Transcription endpoint:")
	requireContains(t, out, "pending")
	requireContains(t, out, "auto-detect")
	requireContains(t, out, "Disabled")

	lock := daemon.NewInstanceLock(env.cfg.LockPath())
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	out, err = env.run(t, nil, "--json", "status")
	if err != nil {
		t.Fatalf("status json: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !report.DaemonRunning {
		t.Fatal("expected daemon reported running while lock is held")
	}
	if report.QueueStats["pending"] != 1 {
		t.Fatalf("unexpected queue stats %v", report.QueueStats)
	}
	for _, check := range report.Checks {
		if !check.Passed {
			t.Fatalf("unexpected failed check %+v", check)
		}
	}
}

func TestTokenCommandMintsVerifiableJWT(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, nil, "token", "--subject", "ci", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	token := strings.TrimSpace(out)
	auth := daemon.NewAuthenticator(config.API{JWTSecret: "cli-secret"})
	if err := auth.Verify(token); err != nil {
		t.Fatalf("minted token rejected: %v", err)
	}

	out, err = env.run(t, nil, "--json", "token", "--ttl", "2h")
	if err != nil {
		t.Fatalf("token json: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if payload["subject"] != "notesmith-cli" || payload["token"] == "" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, err := time.Parse(time.RFC3339, payload["expiresAt"]); err != nil {
		t.Fatalf("bad expiresAt %q: %v", payload["expiresAt"], err)
	}
}

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("notesmithd", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "notesmithd:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
	colored := renderStatusLine("notesmithd", statusOK, "Running", true)
	if !strings.HasPrefix(colored, ansiGreen) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected green wrapping, got %q", colored)
	}
}

func TestCheckLines(t *testing.T) {
	lines := checkLines([]api.CheckStatus{
		{Name: "yt-dlp", Passed: true, Detail: "Ready"},
		{Name: "FFmpeg", Passed: true, Detail: "optional: not found"},
		{Name: "LLM", Passed: false, Detail: "API key missing"},
	}, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for i, want := range []string{"[OK] Ready", "[WARN] optional: not found", "[ERROR] API key missing"} {
		if !strings.Contains(lines[i], want) {
			t.Fatalf("line %d: expected %q in %q", i, want, lines[i])
		}
	}
}

func TestRenderJobDetailWithoutSections(t *testing.T) {
	job := api.Job{ID: "j1", SourceRef: "https://v/1", Status: "completed", HasNotes: true, Notes: "plain text notes"}
	out := renderJobDetail(job, true)
	requireContains(t, out, "No structured sections found")
	out = renderJobDetail(job, false)
	requireContains(t, out, "plain text notes")
}
