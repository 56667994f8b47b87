// Package stageexec wires the production stage executors and drives a single
// submission through them in the foreground.
package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notesmith/internal/acquire"
	"notesmith/internal/config"
	"notesmith/internal/feeds"
	"notesmith/internal/logging"
	"notesmith/internal/notifications"
	"notesmith/internal/queue"
	"notesmith/internal/retry"
	"notesmith/internal/synthesize"
	"notesmith/internal/transcribe"
	"notesmith/internal/workflow"
)

// BuildStages constructs the acquire, transcribe, and synthesize executors
// from configuration.
func BuildStages(cfg *config.Config, logger *slog.Logger) workflow.StageSet {
	return workflow.StageSet{
		Acquire:    acquire.New(cfg, logger),
		Transcribe: transcribe.New(cfg, logger),
		Synthesize: synthesize.New(cfg, logger),
	}
}

// NewFeedFetcher returns the feed reader used by feed submissions.
func NewFeedFetcher(cfg *config.Config) *feeds.Fetcher {
	return feeds.NewFetcher(time.Duration(cfg.Feeds.TimeoutSeconds)*time.Second, cfg.Feeds.MaxItems)
}

// Pipeline bundles the coordinator and intake built over one store.
type Pipeline struct {
	Coordinator *workflow.Coordinator
	Intake      *workflow.Intake
}

// NewPipeline builds a coordinator and intake over store. A zero StageSet
// selects the production executors. Job outcomes go to the configured ntfy
// topic unless opts install another notifier.
func NewPipeline(cfg *config.Config, store *queue.Store, stages workflow.StageSet, logger *slog.Logger, opts ...workflow.CoordinatorOption) *Pipeline {
	if stages.Acquire == nil && stages.Transcribe == nil && stages.Synthesize == nil {
		stages = BuildStages(cfg, logger)
	}
	opts = append([]workflow.CoordinatorOption{workflow.WithNotifier(notifications.NewService(cfg))}, opts...)
	return &Pipeline{
		Coordinator: workflow.NewCoordinator(store, stages, retry.FromConfig(cfg), logger, opts...),
		Intake:      NewIntake(cfg, store, logger),
	}
}

// NewIntake builds an intake with the feed reader and ntfy feed reports
// configured.
func NewIntake(cfg *config.Config, store *queue.Store, logger *slog.Logger) *workflow.Intake {
	intake := workflow.NewIntake(cfg, store, NewFeedFetcher(cfg), logger)
	intake.SetFeedNotifier(notifications.NewService(cfg))
	return intake
}

// Outcome reports a foreground run.
type Outcome struct {
	Job    *queue.Job
	Cached bool
}

// Run submits ref and drives it to a terminal status without the task queue.
// A stage failure yields a Failed job, not an error.
func (p *Pipeline) Run(ctx context.Context, ref string, logger *slog.Logger) (Outcome, error) {
	result, job, err := p.Intake.Prepare(ctx, ref)
	if err != nil {
		return Outcome{}, err
	}
	if result.Cached {
		return Outcome{Job: job, Cached: true}, nil
	}

	started := time.Now()
	job, err = p.Coordinator.RunJob(ctx, job.ID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logging.WarnWithContext(logger, "foreground run interrupted", "run_interrupted",
				logging.String(logging.FieldJobID, result.JobID),
				logging.String(logging.FieldErrorHint, "run notesmith retry to resume from the last checkpoint"),
				logging.String(logging.FieldImpact, "job left at its last checkpoint"),
			)
		}
		return Outcome{Job: job}, fmt.Errorf("run job %s: %w", result.JobID, err)
	}
	if logger != nil {
		logger.Info("foreground run finished",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("status", string(job.Status)),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "run_finished"),
		)
	}
	return Outcome{Job: job}, nil
}
