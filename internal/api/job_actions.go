package api

import (
	"context"
	"errors"

	"notesmith/internal/queue"
	"notesmith/internal/services"
)

// JobActionService captures the operations needed by per-job halt and
// remove workflows.
type JobActionService interface {
	Describe(ctx context.Context, id string) (Job, error)
	Halt(ctx context.Context, id string) (Job, error)
	Remove(ctx context.Context, id string) error
}

type HaltOutcome string

const (
	HaltUpdated          HaltOutcome = "halted"
	HaltNotFound         HaltOutcome = "not_found"
	HaltAlreadyCompleted HaltOutcome = "already_completed"
	HaltAlreadyHalted    HaltOutcome = "already_halted"
)

type HaltResult struct {
	ID          string      `json:"id"`
	Outcome     HaltOutcome `json:"outcome"`
	PriorStatus string      `json:"priorStatus,omitempty"`
}

type HaltJobsResult struct {
	UpdatedCount int          `json:"updatedCount"`
	Jobs         []HaltResult `json:"jobs"`
}

// HaltJobsByID halts each job unless it is already completed or halted.
func HaltJobsByID(ctx context.Context, service JobActionService, ids []string) (HaltJobsResult, error) {
	result := HaltJobsResult{Jobs: make([]HaltResult, 0, len(ids))}
	for _, id := range ids {
		job, err := service.Describe(ctx, id)
		if errors.Is(err, services.ErrNotFound) {
			result.Jobs = append(result.Jobs, HaltResult{ID: id, Outcome: HaltNotFound})
			continue
		}
		if err != nil {
			return HaltJobsResult{}, err
		}
		switch {
		case job.Status == string(queue.StatusCompleted):
			result.Jobs = append(result.Jobs, HaltResult{ID: id, Outcome: HaltAlreadyCompleted, PriorStatus: job.Status})
			continue
		case job.Halted:
			result.Jobs = append(result.Jobs, HaltResult{ID: id, Outcome: HaltAlreadyHalted, PriorStatus: job.Status})
			continue
		}
		if _, err := service.Halt(ctx, id); err != nil {
			return HaltJobsResult{}, err
		}
		result.UpdatedCount++
		result.Jobs = append(result.Jobs, HaltResult{ID: id, Outcome: HaltUpdated, PriorStatus: job.Status})
	}
	return result, nil
}

type RemoveOutcome string

const (
	RemoveRemoved  RemoveOutcome = "removed"
	RemoveNotFound RemoveOutcome = "not_found"
)

type RemoveResult struct {
	ID      string        `json:"id"`
	Outcome RemoveOutcome `json:"outcome"`
}

type RemoveJobsResult struct {
	RemovedCount int            `json:"removedCount"`
	Jobs         []RemoveResult `json:"jobs"`
}

// RemoveJobsByID removes jobs one by one so each ID can report removed or
// not_found.
func RemoveJobsByID(ctx context.Context, service JobActionService, ids []string) (RemoveJobsResult, error) {
	result := RemoveJobsResult{Jobs: make([]RemoveResult, 0, len(ids))}
	for _, id := range ids {
		err := service.Remove(ctx, id)
		switch {
		case errors.Is(err, services.ErrNotFound):
			result.Jobs = append(result.Jobs, RemoveResult{ID: id, Outcome: RemoveNotFound})
		case err != nil:
			return RemoveJobsResult{}, err
		default:
			result.RemovedCount++
			result.Jobs = append(result.Jobs, RemoveResult{ID: id, Outcome: RemoveRemoved})
		}
	}
	return result, nil
}
