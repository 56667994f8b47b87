package api

import (
	"context"
	"fmt"
	"strings"

	"notesmith/internal/queue"
	"notesmith/internal/services"
	"notesmith/internal/workflow"
)

// JobReader abstracts record store reads needed for API queries.
type JobReader interface {
	Get(ctx context.Context, id string) (*queue.Job, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
}

// JobIntake is the mutation surface of the workflow.
type JobIntake interface {
	Submit(ctx context.Context, ref string) (workflow.SubmitResult, error)
	SubmitFeed(ctx context.Context, feedURL string, limit int) ([]workflow.FeedSubmission, error)
	Retry(ctx context.Context, id string) (workflow.SubmitResult, error)
	Regenerate(ctx context.Context, id string) (workflow.SubmitResult, error)
	RegenerateAll(ctx context.Context) (int, error)
	Halt(ctx context.Context, id string) (*queue.Job, error)
	Remove(ctx context.Context, id string) error
}

// JobService exposes job operations returning API DTOs. The daemon's HTTP
// handlers and the CLI both call it.
type JobService struct {
	store  JobReader
	intake JobIntake
}

// NewJobService constructs a JobService.
func NewJobService(store JobReader, intake JobIntake) *JobService {
	return &JobService{store: store, intake: intake}
}

// Submit validates ref and answers from the cache or enqueues a new job.
func (s *JobService) Submit(ctx context.Context, ref string) (SubmitResponse, error) {
	result, err := s.intake.Submit(ctx, ref)
	if err != nil {
		return SubmitResponse{}, err
	}
	return FromSubmitResult(result), nil
}

// SubmitFeed imports up to limit entries from a podcast feed.
func (s *JobService) SubmitFeed(ctx context.Context, feedURL string, limit int) (FeedResponse, error) {
	submissions, err := s.intake.SubmitFeed(ctx, feedURL, limit)
	if err != nil {
		return FeedResponse{}, err
	}
	return FromFeedSubmissions(submissions), nil
}

// List returns jobs newest first. filter is a comma-separated status list;
// empty means every status.
func (s *JobService) List(ctx context.Context, filter string) ([]Job, error) {
	statuses, err := ParseStatuses(filter)
	if err != nil {
		return nil, err
	}
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe returns the full record for id.
func (s *JobService) Describe(ctx context.Context, id string) (Job, error) {
	job, err := s.get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	return FromJob(job), nil
}

// Stats returns job counts keyed by status string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Retry resumes a job from its earliest missing checkpoint.
func (s *JobService) Retry(ctx context.Context, id string) (SubmitResponse, error) {
	result, err := s.intake.Retry(ctx, id)
	if err != nil {
		return SubmitResponse{}, err
	}
	return FromSubmitResult(result), nil
}

// Regenerate re-runs note synthesis for a job.
func (s *JobService) Regenerate(ctx context.Context, id string) (SubmitResponse, error) {
	result, err := s.intake.Regenerate(ctx, id)
	if err != nil {
		return SubmitResponse{}, err
	}
	return FromSubmitResult(result), nil
}

// RegenerateAll queues synthesis for every job with a transcript and no notes.
func (s *JobService) RegenerateAll(ctx context.Context) (RegenerateAllResponse, error) {
	count, err := s.intake.RegenerateAll(ctx)
	if err != nil {
		return RegenerateAllResponse{}, err
	}
	return RegenerateAllResponse{Queued: count}, nil
}

// Halt stops further retries for a job.
func (s *JobService) Halt(ctx context.Context, id string) (Job, error) {
	job, err := s.intake.Halt(ctx, id)
	if err != nil {
		return Job{}, err
	}
	return FromJobSummary(job), nil
}

// Remove deletes a job and its tasks.
func (s *JobService) Remove(ctx context.Context, id string) error {
	return s.intake.Remove(ctx, id)
}

func (s *JobService) get(ctx context.Context, id string) (*queue.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "api", "get job", "job id required", nil)
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "get job", fmt.Sprintf("job %s not found", id), nil)
	}
	return job, nil
}

// ParseStatuses parses a comma-separated status filter. Unknown statuses are
// a validation error.
func ParseStatuses(filter string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, part := range strings.Split(filter, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		status, ok := queue.ParseStatus(part)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", "parse status", fmt.Sprintf("unknown status %q", strings.TrimSpace(part)), nil)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
