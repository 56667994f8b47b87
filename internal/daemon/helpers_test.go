package daemon_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"notesmith/internal/config"
	"notesmith/internal/daemon"
	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/retry"
	"notesmith/internal/stage"
	"notesmith/internal/testsupport"
	"notesmith/internal/workflow"
)

const sampleNotes = "<notes><summary><title>Summary</title><body>short</body></summary></notes>"

type okStage struct {
	name  stage.Name
	patch queue.Patch
}

func (s okStage) Name() stage.Name { return s.name }

func (s okStage) Execute(context.Context, *queue.Job) stage.Result {
	return stage.Success(s.name.String()+" done", s.patch)
}

func (s okStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.name.String())
}

func okStages() workflow.StageSet {
	return workflow.StageSet{
		Acquire:    okStage{name: stage.Acquire, patch: queue.Patch{}.WithMedia("m1", "/media/m1.m4a")},
		Transcribe: okStage{name: stage.Transcribe, patch: queue.Patch{}.WithTranscript("[0.00s -> 1.00s] hi")},
		Synthesize: okStage{name: stage.Synthesize, patch: queue.Patch{}.WithNotes(sampleNotes)},
	}
}

type fixture struct {
	cfg    *config.Config
	store  *queue.Store
	intake *workflow.Intake
	daemon *daemon.Daemon
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	if mutate != nil {
		mutate(cfg)
	}
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	coord := workflow.NewCoordinator(store, okStages(),
		retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		logger, workflow.WithFileCheck(func(string) bool { return true }))
	mgr := workflow.NewManager(cfg, store, coord, logger)
	mgr.SetPollInterval(10 * time.Millisecond)
	intake := workflow.NewIntake(cfg, store, nil, logger)

	lock := daemon.NewInstanceLock(filepath.Join(t.TempDir(), "notesmithd.lock"))
	if err := lock.Acquire(); err != nil {
		t.Fatalf("lock.Acquire: %v", err)
	}
	d, err := daemon.New(cfg, store, logger, mgr, intake, lock)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return &fixture{cfg: cfg, store: store, intake: intake, daemon: d}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
