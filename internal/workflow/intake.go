package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"notesmith/internal/config"
	"notesmith/internal/feeds"
	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/services"
	"notesmith/internal/stage"
)

// Task payloads record why a task was enqueued.
const (
	payloadSubmit     = "submit"
	payloadRetry      = "retry"
	payloadRegenerate = "regenerate"
)

// IntakeStore is the record store surface used by Intake.
type IntakeStore interface {
	Create(ctx context.Context, init queue.JobInit) (*queue.Job, error)
	Get(ctx context.Context, id string) (*queue.Job, error)
	Update(ctx context.Context, id string, patch queue.Patch) (*queue.Job, error)
	Find(ctx context.Context, filter queue.Filter) ([]*queue.Job, error)
	Remove(ctx context.Context, id string) error
	Enqueue(ctx context.Context, stage, jobID, payload string) (*queue.Task, error)
}

// FeedFetcher lists the entries of a podcast feed.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string, limit int) ([]feeds.Entry, error)
}

// FeedNotifier is told how many entries a feed import queued.
type FeedNotifier interface {
	NotifyFeedQueued(ctx context.Context, feedURL string, queued int) error
}

// SubmitResult describes the job a submission produced or touched.
type SubmitResult struct {
	JobID     string
	TaskID    string
	SourceRef string
	Status    queue.Status
	Cached    bool
}

// FeedSubmission pairs a feed entry with its submission outcome.
type FeedSubmission struct {
	Entry  feeds.Entry
	Result SubmitResult
	Error  string
}

// Intake is the submission side of the workflow: it validates references,
// answers from the cache, creates jobs, and enqueues tasks.
type Intake struct {
	store        IntakeStore
	feeds        FeedFetcher
	cacheEnabled bool
	notifier     FeedNotifier
	logger       *slog.Logger
}

// NewIntake constructs an Intake. feedFetcher may be nil when feed import is
// not needed.
func NewIntake(cfg *config.Config, store IntakeStore, feedFetcher FeedFetcher, logger *slog.Logger) *Intake {
	return &Intake{
		store:        store,
		feeds:        feedFetcher,
		cacheEnabled: cfg.Cache.Enabled,
		logger:       logging.NewComponentLogger(logger, "intake"),
	}
}

// SetFeedNotifier reports feed imports that queued new work through n.
func (i *Intake) SetFeedNotifier(n FeedNotifier) {
	i.notifier = n
}

// ValidateRef checks that ref is an absolute http or https URL.
func ValidateRef(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return services.Wrap(services.ErrValidation, "intake", "validate", "source url required", nil)
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return services.Wrap(services.ErrValidation, "intake", "validate", fmt.Sprintf("invalid url %q", ref), err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return services.Wrap(services.ErrValidation, "intake", "validate", fmt.Sprintf("url %q must be an absolute http or https url", ref), nil)
	}
	return nil
}

// Submit answers ref from the cache when a completed job exists for the same
// string; otherwise it creates a pending job and enqueues it.
func (i *Intake) Submit(ctx context.Context, ref string) (SubmitResult, error) {
	result, job, err := i.Prepare(ctx, ref)
	if err != nil || result.Cached {
		return result, err
	}
	task, err := i.store.Enqueue(ctx, stage.Acquire.String(), job.ID, payloadSubmit)
	if err != nil {
		return result, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	result.TaskID = task.ID
	return result, nil
}

// Prepare performs Submit without enqueueing: it returns either a cached
// completed job or a new pending one. The foreground runner uses it to drive
// the coordinator directly.
func (i *Intake) Prepare(ctx context.Context, ref string) (SubmitResult, *queue.Job, error) {
	ref = strings.TrimSpace(ref)
	if err := ValidateRef(ref); err != nil {
		return SubmitResult{}, nil, err
	}
	logger := logging.WithContext(ctx, i.logger)

	if i.cacheEnabled {
		cached, err := i.lookup(ctx, ref)
		if err != nil {
			return SubmitResult{}, nil, err
		}
		if cached != nil {
			job, err := i.store.Create(ctx, queue.JobInit{
				SourceRef:  ref,
				Status:     queue.StatusCompleted,
				MediaID:    cached.MediaID,
				MediaPath:  cached.MediaPath,
				Transcript: cached.Transcript,
				Notes:      cached.Notes,
			})
			if err != nil {
				return SubmitResult{}, nil, fmt.Errorf("clone cached job: %w", err)
			}
			logger.Info("cache hit",
				logging.String("source", ref),
				logging.String("cached_job_id", cached.ID),
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldEventType, "cache_hit"),
			)
			return SubmitResult{JobID: job.ID, SourceRef: ref, Status: job.Status, Cached: true}, job, nil
		}
	}

	job, err := i.store.Create(ctx, queue.JobInit{SourceRef: ref})
	if err != nil {
		return SubmitResult{}, nil, fmt.Errorf("create job: %w", err)
	}
	logger.Info("job submitted",
		logging.String("source", ref),
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEventType, "job_submitted"),
	)
	return SubmitResult{JobID: job.ID, SourceRef: ref, Status: job.Status}, job, nil
}

func (i *Intake) lookup(ctx context.Context, ref string) (*queue.Job, error) {
	hasNotes := true
	matches, err := i.store.Find(ctx, queue.Filter{
		SourceRef: ref,
		Statuses:  []queue.Status{queue.StatusCompleted},
		HasNotes:  &hasNotes,
		Order:     queue.OrderNewest,
		Limit:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// Retry resumes a job from its earliest missing checkpoint. Completed jobs
// are returned unchanged.
func (i *Intake) Retry(ctx context.Context, id string) (SubmitResult, error) {
	job, err := i.mustGet(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	decision := Plan(job, nil)
	entry := decision.Stage
	if decision.Completed {
		if job.Status == queue.StatusCompleted {
			return resultFor(job), nil
		}
		entry = stage.Synthesize
	}
	return i.resume(ctx, job, entry, payloadRetry)
}

// Regenerate re-runs note synthesis for a job that has a transcript but no
// notes.
func (i *Intake) Regenerate(ctx context.Context, id string) (SubmitResult, error) {
	job, err := i.mustGet(ctx, id)
	if err != nil {
		return SubmitResult{}, err
	}
	if !job.HasTranscript() {
		return SubmitResult{}, services.Wrap(services.ErrValidation, "intake", "regenerate", fmt.Sprintf("job %s has no transcript", id), nil)
	}
	if job.HasNotes() && job.Status == queue.StatusCompleted {
		return resultFor(job), nil
	}
	return i.resume(ctx, job, stage.Synthesize, payloadRegenerate)
}

// RegenerateAll enqueues synthesis for every job with a transcript and no
// notes, returning how many jobs were queued.
func (i *Intake) RegenerateAll(ctx context.Context) (int, error) {
	hasTranscript, hasNotes := true, false
	jobs, err := i.store.Find(ctx, queue.Filter{
		HasTranscript: &hasTranscript,
		HasNotes:      &hasNotes,
		Order:         queue.OrderOldest,
	})
	if err != nil {
		return 0, fmt.Errorf("find jobs awaiting notes: %w", err)
	}
	count := 0
	for _, job := range jobs {
		if _, err := i.resume(ctx, job, stage.Synthesize, payloadRegenerate); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// resume resets a failed or halted job to pending and enqueues a task for
// entry. Jobs that are already pending or processing keep their status.
func (i *Intake) resume(ctx context.Context, job *queue.Job, entry stage.Name, payload string) (SubmitResult, error) {
	patch := queue.Patch{}
	if job.Halted {
		patch = patch.WithHalted(false)
	}
	if job.Status == queue.StatusFailed || job.Status == queue.StatusCompleted {
		patch = patch.WithStatus(queue.StatusPending).ClearLastError()
	}
	if !patch.IsEmpty() {
		updated, err := i.store.Update(ctx, job.ID, patch)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("reset job %s: %w", job.ID, err)
		}
		job = updated
	}
	task, err := i.store.Enqueue(ctx, entry.String(), job.ID, payload)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}
	logging.WithContext(ctx, i.logger).Info("job resumed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldStage, entry.String()),
		logging.String("reason", payload),
		logging.String(logging.FieldEventType, "job_resumed"),
	)
	result := resultFor(job)
	result.TaskID = task.ID
	return result, nil
}

// Halt marks a job so the retry policy makes no further attempts.
func (i *Intake) Halt(ctx context.Context, id string) (*queue.Job, error) {
	if _, err := i.mustGet(ctx, id); err != nil {
		return nil, err
	}
	job, err := i.store.Update(ctx, id, queue.Patch{}.WithHalted(true))
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, i.logger).Info("job halted",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldEventType, "job_halted"),
	)
	return job, nil
}

// Remove deletes a job and its tasks.
func (i *Intake) Remove(ctx context.Context, id string) error {
	if err := i.store.Remove(ctx, id); err != nil {
		return err
	}
	logging.WithContext(ctx, i.logger).Info("job removed",
		logging.String(logging.FieldJobID, id),
		logging.String(logging.FieldEventType, "job_removed"),
	)
	return nil
}

// SubmitFeed submits every entry of a podcast feed. Per-entry failures are
// reported in the results rather than aborting the import.
func (i *Intake) SubmitFeed(ctx context.Context, feedURL string, limit int) ([]FeedSubmission, error) {
	if i.feeds == nil {
		return nil, services.Wrap(services.ErrConfiguration, "intake", "feed", "feed import not configured", nil)
	}
	if err := ValidateRef(feedURL); err != nil {
		return nil, err
	}
	entries, err := i.feeds.Fetch(ctx, feedURL, limit)
	if err != nil {
		return nil, err
	}
	submissions := make([]FeedSubmission, 0, len(entries))
	queued := 0
	for _, entry := range entries {
		result, err := i.Submit(ctx, entry.Ref)
		submission := FeedSubmission{Entry: entry, Result: result}
		if err == nil && result.TaskID != "" {
			queued++
		}
		if err != nil {
			submission.Error = err.Error()
			logging.WarnWithContext(i.logger, "feed entry not submitted", "feed_entry_skipped",
				logging.String("source", entry.Ref),
				logging.Error(err),
				logging.String(logging.FieldImpact, "entry skipped; the rest of the feed is imported"),
			)
		}
		submissions = append(submissions, submission)
	}
	if queued > 0 && i.notifier != nil {
		if err := i.notifier.NotifyFeedQueued(ctx, feedURL, queued); err != nil {
			logging.WarnWithContext(i.logger, "feed notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "feed was imported but not pushed"),
			)
		}
	}
	return submissions, nil
}

func (i *Intake) mustGet(ctx context.Context, id string) (*queue.Job, error) {
	job, err := i.store.Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "intake", "get job", fmt.Sprintf("job %s not found", id), nil)
	}
	return job, nil
}

func resultFor(job *queue.Job) SubmitResult {
	return SubmitResult{JobID: job.ID, SourceRef: job.SourceRef, Status: job.Status}
}
