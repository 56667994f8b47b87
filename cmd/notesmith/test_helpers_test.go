package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"notesmith/internal/config"
	"notesmith/internal/queue"
	"notesmith/internal/stage"
	"notesmith/internal/testsupport"
	"notesmith/internal/workflow"
)

const testNotes = `<notes>
  <summary><title>Overview</title><body>Short summary.</body></summary>
  <section><title>Intro</title><timestamp>[0:05]</timestamp><body>Opening remarks.</body></section>
</notes>`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	mediaFile  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(endpoint.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "notesmith.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
media_dir = %q
log_dir = %q

[api]
bind = "127.0.0.1:0"
jwt_secret = "cli-secret"

[acquire]
min_free_mb = 0

[transcription]
base_url = %q
api_key = "test"

[llm]
api_key = "test"
`, cfg.Paths.DataDir, cfg.Paths.MediaDir, cfg.Paths.LogDir, endpoint.URL+"/")
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	mediaFile := testsupport.WriteMedia(t, filepath.Join(cfg.Paths.MediaDir, "m1.m4a"), 16)

	return &cliTestEnv{cfg: cfg, configPath: configPath, mediaFile: mediaFile}
}

type fixedStage struct {
	name   stage.Name
	result stage.Result
}

func (s fixedStage) Name() stage.Name { return s.name }

func (s fixedStage) Execute(context.Context, *queue.Job) stage.Result { return s.result }

func (s fixedStage) HealthCheck(context.Context) stage.Health { return stage.Healthy(s.name.String()) }

func (e *cliTestEnv) stubStages(transcribe stage.Result) workflow.StageSet {
	return workflow.StageSet{
		Acquire:    fixedStage{stage.Acquire, stage.Success("downloaded", queue.Patch{}.WithMedia("m1", e.mediaFile))},
		Transcribe: fixedStage{stage.Transcribe, transcribe},
		Synthesize: fixedStage{stage.Synthesize, stage.Success("notes", queue.Patch{}.WithNotes(testNotes))},
	}
}

func (e *cliTestEnv) run(t *testing.T, ctx *commandContext, args ...string) (string, error) {
	t.Helper()
	if ctx == nil {
		ctx = newCommandContext()
	}
	cmd := newRootCommandWithContext(ctx)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
