package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"notesmith/internal/fileutil"
	"notesmith/internal/logging"
	"notesmith/internal/notes"
	"notesmith/internal/queue"
	"notesmith/internal/retry"
	"notesmith/internal/services"
	"notesmith/internal/stage"
)

// JobStore is the part of the record store the coordinator needs.
type JobStore interface {
	Get(ctx context.Context, id string) (*queue.Job, error)
	Update(ctx context.Context, id string, patch queue.Patch) (*queue.Job, error)
}

// StageSet bundles the executors the coordinator dispatches to.
type StageSet struct {
	Acquire    stage.Executor
	Transcribe stage.Executor
	Synthesize stage.Executor
}

func (s StageSet) executor(name stage.Name) stage.Executor {
	switch name {
	case stage.Acquire:
		return s.Acquire
	case stage.Transcribe:
		return s.Transcribe
	case stage.Synthesize:
		return s.Synthesize
	default:
		return nil
	}
}

// Executors returns the configured executors in stage order.
func (s StageSet) Executors() []stage.Executor {
	out := make([]stage.Executor, 0, 3)
	for _, name := range stage.Names() {
		if exec := s.executor(name); exec != nil {
			out = append(out, exec)
		}
	}
	return out
}

// Notifier receives the outcome of jobs the coordinator moved to a terminal
// status. notifications.Service satisfies it.
type Notifier interface {
	NotifyNotesReady(ctx context.Context, title, sourceRef string) error
	NotifyJobFailed(ctx context.Context, sourceRef, message string) error
}

// Coordinator sequences the stages of one job and persists a checkpoint after
// each of them.
type Coordinator struct {
	store      JobStore
	stages     StageSet
	policy     retry.Policy
	fileExists func(string) bool
	notifier   Notifier
	logger     *slog.Logger
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithFileCheck overrides how the planner verifies the media checkpoint.
func WithFileCheck(fn func(string) bool) CoordinatorOption {
	return func(c *Coordinator) {
		c.fileExists = fn
	}
}

// WithNotifier publishes completed and failed jobs through n.
func WithNotifier(n Notifier) CoordinatorOption {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// NewCoordinator constructs a coordinator.
func NewCoordinator(store JobStore, stages StageSet, policy retry.Policy, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:      store,
		stages:     stages,
		policy:     policy,
		fileExists: fileutil.FileExists,
		logger:     logging.NewComponentLogger(logger, "workflow-coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stages returns the executors the coordinator dispatches to.
func (c *Coordinator) Stages() StageSet {
	return c.stages
}

// RunJob drives the job through every remaining stage and returns the
// persisted record. Stage failures are not errors: they resolve to a Failed
// job carrying LastError. RunJob returns an error for an unknown job, a
// store failure, or context cancellation; in the last case the job is left
// as it was last persisted.
func (c *Coordinator) RunJob(ctx context.Context, jobID string) (*queue.Job, error) {
	job, err := c.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "workflow", "run job", fmt.Sprintf("job %s not found", jobID), nil)
	}
	ctx = services.WithJobID(ctx, job.ID)
	progressed := false
	var lastSucceeded stage.Name

	for {
		decision := Plan(job, c.fileExists)
		if decision.Completed {
			job, err = c.finishCompleted(ctx, job)
			if err == nil && progressed {
				c.notifyReady(ctx, job)
			}
			return job, err
		}

		if decision.Stage == lastSucceeded {
			return c.failStalled(ctx, job, decision)
		}

		executor := c.stages.executor(decision.Stage)
		if executor == nil {
			return c.failJob(ctx, job, decision.Stage, queue.Patch{}, fmt.Sprintf("%s failed: no executor configured", decision.Stage))
		}

		job, err = c.dispatch(ctx, job, decision.Stage)
		if err != nil {
			return job, err
		}
		progressed = true

		stageCtx := services.WithStage(ctx, decision.Stage.String())
		stageCtx = services.WithRequestID(stageCtx, uuid.NewString())
		stageLogger := logging.WithContext(stageCtx, c.logger)
		stageLogger.Info("stage started",
			logging.String("reason", decision.Reason),
			logging.String(logging.FieldEventType, "stage_start"),
		)
		started := time.Now()

		current := job
		outcome := c.policy.Run(stageCtx, func(attemptCtx context.Context, attempt int) stage.Result {
			result := executor.Execute(attemptCtx, current)
			if !result.OK() {
				stageLogger.Warn("stage attempt failed",
					logging.Int(logging.FieldAttempt, attempt),
					logging.String("failure_kind", string(result.Failure.Kind)),
					logging.Bool("retryable", result.Failure.Retryable),
					logging.Error(result.Failure),
					logging.String(logging.FieldEventType, "stage_attempt_failed"),
					logging.String(logging.FieldErrorHint, "see the provider error for details"),
					logging.String(logging.FieldImpact, "stage may be retried"),
				)
			}
			return result
		}, c.haltRequested(job.ID))

		if outcome.Canceled {
			stageLogger.Info("stage interrupted by shutdown",
				logging.Int("attempts", outcome.Attempts),
				logging.String(logging.FieldEventType, "stage_interrupted"),
			)
			if err := ctx.Err(); err != nil {
				return job, err
			}
			return job, context.Canceled
		}

		if outcome.OK() {
			job, err = c.checkpoint(stageCtx, job, decision.Stage, outcome.Result)
			if err != nil {
				return job, err
			}
			stageLogger.Info("stage completed",
				logging.String("summary", outcome.Result.Summary),
				logging.Int("attempts", outcome.Attempts),
				logging.Duration("stage_duration", time.Since(started)),
				logging.String(logging.FieldEventType, "stage_complete"),
			)
			lastSucceeded = decision.Stage
			continue
		}

		var patch queue.Patch
		if outcome.Failure != nil && outcome.Failure.Kind == stage.KindPreconditionMissing {
			patch = Invalidate(decision.Stage)
		}
		message := FormatLastError(decision.Stage, outcome)
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure",
			logging.String("error_message", message),
			logging.Int("attempts", outcome.Attempts),
			logging.Bool("halted", outcome.Halted),
			logging.Bool("exhausted", outcome.Exhausted),
			logging.Error(outcome.Failure),
			logging.String(logging.FieldErrorHint, "fix the cause and run notesmith retry"),
		)
		return c.failJob(stageCtx, job, decision.Stage, patch, message)
	}
}

// dispatch moves the job into processing for name. Clearing LastError here
// lets a failed job re-enter the pipeline.
func (c *Coordinator) dispatch(ctx context.Context, job *queue.Job, name stage.Name) (*queue.Job, error) {
	if job.Status == queue.StatusProcessing && job.Stage == name.String() && job.LastError == "" {
		return job, nil
	}
	patch := queue.Patch{}.
		WithStatus(queue.StatusProcessing).
		WithStage(name.String()).
		ClearLastError()
	updated, err := c.store.Update(ctx, job.ID, patch)
	if err != nil {
		return job, fmt.Errorf("persist %s dispatch: %w", name, err)
	}
	return updated, nil
}

// checkpoint persists a successful stage. The last stage's patch and the
// completed status are written in the same update.
func (c *Coordinator) checkpoint(ctx context.Context, job *queue.Job, name stage.Name, result stage.Result) (*queue.Job, error) {
	patch := result.Patch.ClearLastError()
	if next := name.Next(); next != "" {
		patch = patch.WithStatus(queue.StatusProcessing).WithStage(next.String())
	} else {
		patch = patch.WithStatus(queue.StatusCompleted)
	}
	updated, err := c.store.Update(ctx, job.ID, patch)
	if err != nil {
		return job, fmt.Errorf("persist %s checkpoint: %w", name, err)
	}
	return updated, nil
}

func (c *Coordinator) finishCompleted(ctx context.Context, job *queue.Job) (*queue.Job, error) {
	if job.Status == queue.StatusCompleted && job.LastError == "" {
		return job, nil
	}
	updated, err := c.store.Update(ctx, job.ID, queue.Patch{}.WithStatus(queue.StatusCompleted).ClearLastError())
	if err != nil {
		return job, fmt.Errorf("persist completion: %w", err)
	}
	return updated, nil
}

func (c *Coordinator) failJob(ctx context.Context, job *queue.Job, name stage.Name, patch queue.Patch, message string) (*queue.Job, error) {
	patch = patch.WithStatus(queue.StatusFailed).WithLastError(message).WithStage(name.String())
	updated, err := c.store.Update(ctx, job.ID, patch)
	if err != nil {
		return job, fmt.Errorf("persist %s failure: %w", name, err)
	}
	if c.notifier != nil {
		if err := c.notifier.NotifyJobFailed(ctx, updated.SourceRef, message); err != nil {
			c.warnNotify(ctx, err)
		}
	}
	return updated, nil
}

// failStalled fails a job whose stage succeeded without producing the
// checkpoint the planner needs, so the same stage would be planned again.
func (c *Coordinator) failStalled(ctx context.Context, job *queue.Job, decision Decision) (*queue.Job, error) {
	message := fmt.Sprintf("%s failed: stage reported success but %s", decision.Stage, decision.Reason)
	logging.ErrorWithContext(logging.WithContext(services.WithStage(ctx, decision.Stage.String()), c.logger),
		"stage made no progress", "stage_stalled",
		logging.String("error_message", message),
		logging.String(logging.FieldErrorHint, "check the provider output for the stage"),
	)
	return c.failJob(ctx, job, decision.Stage, queue.Patch{}, message)
}

func (c *Coordinator) notifyReady(ctx context.Context, job *queue.Job) {
	if c.notifier == nil || job == nil {
		return
	}
	title := notes.Parse(job.Notes).Summary.Title
	if err := c.notifier.NotifyNotesReady(ctx, title, job.SourceRef); err != nil {
		c.warnNotify(ctx, err)
	}
}

func (c *Coordinator) warnNotify(ctx context.Context, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, c.logger), "job notification failed", "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		logging.String(logging.FieldImpact, "job outcome was recorded but not pushed"),
	)
}

// haltRequested re-reads the job so a halt issued while the stage is backing
// off takes effect before the next attempt.
func (c *Coordinator) haltRequested(jobID string) retry.HaltFunc {
	return func(ctx context.Context) bool {
		job, err := c.store.Get(ctx, jobID)
		if err != nil || job == nil {
			return false
		}
		return job.Halted
	}
}

// FormatLastError renders the operator-facing failure text, for example
// "transcribe failed after 3 attempts: empty transcript".
func FormatLastError(name stage.Name, outcome retry.Outcome) string {
	verb := "failed"
	if outcome.Halted {
		verb = "halted by operator"
	}
	text := fmt.Sprintf("%s %s after %s", name, verb, pluralAttempts(outcome.Attempts))
	cause := ""
	if outcome.Failure != nil {
		cause = strings.TrimSpace(outcome.Failure.Error())
	}
	if cause == "" {
		return text
	}
	return text + ": " + cause
}

func pluralAttempts(n int) string {
	if n == 1 {
		return "1 attempt"
	}
	return fmt.Sprintf("%d attempts", n)
}

// IsNotFound reports whether err means the job does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
