package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"notesmith/internal/config"
	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/retry"
	"notesmith/internal/stage"
	"notesmith/internal/testsupport"
	"notesmith/internal/workflow"
)

// fakeExecutor replays scripted results; the last result repeats.
type fakeExecutor struct {
	name      stage.Name
	results   []stage.Result
	onExecute func(ctx context.Context, job *queue.Job)

	mu    sync.Mutex
	calls int
}

func (f *fakeExecutor) Name() stage.Name { return f.name }

func (f *fakeExecutor) Execute(ctx context.Context, job *queue.Job) stage.Result {
	f.mu.Lock()
	f.calls++
	index := f.calls - 1
	f.mu.Unlock()
	if f.onExecute != nil {
		f.onExecute(ctx, job)
	}
	if len(f.results) == 0 {
		return stage.Success(string(f.name)+" done", queue.Patch{})
	}
	if index >= len(f.results) {
		index = len(f.results) - 1
	}
	return f.results[index]
}

func (f *fakeExecutor) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(f.name.String())
}

func (f *fakeExecutor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStages struct {
	acquire    *fakeExecutor
	transcribe *fakeExecutor
	synthesize *fakeExecutor
}

func newFakeStages() *fakeStages {
	return &fakeStages{
		acquire: &fakeExecutor{name: stage.Acquire, results: []stage.Result{
			stage.Success("downloaded", queue.Patch{}.WithMedia("media-1", "/media/media-1.m4a")),
		}},
		transcribe: &fakeExecutor{name: stage.Transcribe, results: []stage.Result{
			stage.Success("transcribed", queue.Patch{}.WithTranscript("[0.00s -> 1.00s] hello")),
		}},
		synthesize: &fakeExecutor{name: stage.Synthesize, results: []stage.Result{
			stage.Success("notes", queue.Patch{}.WithNotes("<notes><summary><body>hi</body></summary></notes>")),
		}},
	}
}

func (f *fakeStages) set() workflow.StageSet {
	return workflow.StageSet{Acquire: f.acquire, Transcribe: f.transcribe, Synthesize: f.synthesize}
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func trustPaths(string) bool { return true }

type harness struct {
	cfg         *config.Config
	store       *queue.Store
	stages      *fakeStages
	coordinator *workflow.Coordinator
	intake      *workflow.Intake
}

func newHarness(t *testing.T, opts ...workflow.CoordinatorOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stages := newFakeStages()
	if len(opts) == 0 {
		opts = []workflow.CoordinatorOption{workflow.WithFileCheck(trustPaths)}
	}
	return &harness{
		cfg:         cfg,
		store:       store,
		stages:      stages,
		coordinator: workflow.NewCoordinator(store, stages.set(), fastPolicy(), logging.NewNop(), opts...),
		intake:      workflow.NewIntake(cfg, store, nil, logging.NewNop()),
	}
}

func mustGet(t *testing.T, store *queue.Store, id string) *queue.Job {
	t.Helper()
	job, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("store.Get: %v", err)
	}
	if job == nil {
		t.Fatalf("job %s missing", id)
	}
	return job
}
