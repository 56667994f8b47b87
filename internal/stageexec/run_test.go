package stageexec_test

import (
	"context"
	"testing"

	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/stage"
	"notesmith/internal/stageexec"
	"notesmith/internal/testsupport"
	"notesmith/internal/workflow"
)

type scripted struct {
	name   stage.Name
	result stage.Result
}

func (s scripted) Name() stage.Name { return s.name }

func (s scripted) Execute(context.Context, *queue.Job) stage.Result { return s.result }

func (s scripted) HealthCheck(context.Context) stage.Health { return stage.Healthy(s.name.String()) }

func stages(transcribe stage.Result) workflow.StageSet {
	return workflow.StageSet{
		Acquire:    scripted{stage.Acquire, stage.Success("ok", queue.Patch{}.WithMedia("m1", "/media/m1.m4a"))},
		Transcribe: scripted{stage.Transcribe, transcribe},
		Synthesize: scripted{stage.Synthesize, stage.Success("ok", queue.Patch{}.WithNotes("<notes><summary><title>S</title><body>b</body></summary></notes>"))},
	}
}

func trust(string) bool { return true }

func TestBuildStagesWiresEveryExecutor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	set := stageexec.BuildStages(cfg, logging.NewNop())
	if set.Acquire == nil || set.Transcribe == nil || set.Synthesize == nil {
		t.Fatalf("expected all executors, got %+v", set)
	}
	if set.Acquire.Name() != stage.Acquire || set.Transcribe.Name() != stage.Transcribe || set.Synthesize.Name() != stage.Synthesize {
		t.Fatal("executors registered under the wrong names")
	}
}

func TestPipelineRunCompletesJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ok := stage.Success("ok", queue.Patch{}.WithTranscript("[0.00s -> 1.00s] hi"))
	p := stageexec.NewPipeline(cfg, store, stages(ok), logging.NewNop(), workflow.WithFileCheck(trust))

	out, err := p.Run(context.Background(), "https://example.com/v/1", logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Cached || out.Job == nil || out.Job.Status != queue.StatusCompleted {
		t.Fatalf("unexpected outcome %+v", out)
	}

	again, err := p.Run(context.Background(), "https://example.com/v/1", logging.NewNop())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !again.Cached || again.Job.ID == out.Job.ID || again.Job.Notes != out.Job.Notes {
		t.Fatalf("expected cached clone, got %+v", again)
	}
}

func TestPipelineRunReportsStageFailureOnJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	bad := stage.Fail(stage.Rejected("unsupported audio", nil, false))
	p := stageexec.NewPipeline(cfg, store, stages(bad), logging.NewNop(), workflow.WithFileCheck(trust))

	out, err := p.Run(context.Background(), "https://example.com/v/2", logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Job.Status != queue.StatusFailed || out.Job.LastError == "" {
		t.Fatalf("expected failed job with error, got %+v", out.Job)
	}
}

func TestPipelineRunRejectsInvalidRef(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	p := stageexec.NewPipeline(cfg, store, workflow.StageSet{}, logging.NewNop())
	if _, err := p.Run(context.Background(), "not a url", logging.NewNop()); err == nil {
		t.Fatal("expected validation error")
	}
}
