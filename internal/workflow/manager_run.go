package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/services"
)

// Start reclaims tasks orphaned by a previous daemon and begins background
// processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if m.coordinator == nil {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	if reclaimed, err := m.store.ReclaimAllRunning(ctx); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("reclaim running tasks: %w", err)
	} else if reclaimed > 0 {
		m.logger.Info("requeued tasks left running by a previous daemon",
			logging.Int64("count", reclaimed),
			logging.String(logging.FieldEventType, "tasks_reclaimed"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(m.workers + 1)
	m.mu.Unlock()

	go m.heartbeat.RunReclaimer(runCtx, &m.wg)
	for i := range m.workers {
		go m.runWorker(runCtx, i+1)
	}
	m.logger.Info("workflow started",
		logging.Int("workers", m.workers),
		logging.String(logging.FieldEventType, "workflow_started"),
	)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", index))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		processed, err := m.RunOnce(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			m.handleClaimError(ctx, logger, err)
		case !processed:
			m.waitForTaskOrShutdown(ctx)
		}
	}
}

// RunOnce claims one task and runs its job. It reports whether a task was
// claimed.
func (m *Manager) RunOnce(ctx context.Context) (bool, error) {
	task, err := m.store.Claim(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	return true, m.processTask(ctx, task)
}

func (m *Manager) processTask(ctx context.Context, task *queue.Task) error {
	taskCtx := services.WithTaskID(services.WithJobID(ctx, task.JobID), task.ID)
	logger := logging.WithContext(taskCtx, m.logger)
	logger.Info("task claimed",
		logging.String("requested_stage", task.Stage),
		logging.Int("delivery", task.Attempts),
		logging.String(logging.FieldEventType, "task_claimed"),
	)

	job, err := m.runWithHeartbeat(taskCtx, task)
	if job != nil {
		m.setLastJob(job)
	}
	switch {
	case err == nil:
		if err := m.store.Complete(ctx, task.ID); err != nil {
			m.setLastError(err)
			logger.Error("failed to mark task done", logging.Error(err))
			return nil
		}
		logger.Info("task finished",
			logging.String("job_status", string(job.Status)),
			logging.String(logging.FieldEventType, "task_done"),
		)
	case ctx.Err() != nil:
		// Left running; the reclaimer hands it out again after restart.
		return context.Canceled
	case IsNotFound(err):
		if buryErr := m.store.Bury(ctx, task.ID, err.Error()); buryErr != nil {
			logger.Error("failed to bury task for missing job", logging.Error(buryErr))
		}
	default:
		m.setLastError(err)
		m.requeueAfterError(ctx, logger, task, err)
	}
	return nil
}

func (m *Manager) runWithHeartbeat(ctx context.Context, task *queue.Task) (*queue.Job, error) {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, task.ID)

	job, err := m.coordinator.RunJob(ctx, task.JobID)
	hbCancel()
	hbWG.Wait()
	return job, err
}

func (m *Manager) requeueAfterError(ctx context.Context, logger *slog.Logger, task *queue.Task, cause error) {
	if task.Attempts >= maxTaskDeliveries {
		logging.ErrorWithContext(logger, "task buried after repeated errors", "task_buried",
			logging.Int("deliveries", task.Attempts),
			logging.Error(cause),
			logging.String(logging.FieldErrorHint, "check record store health, then run notesmith retry"),
		)
		if err := m.store.Bury(ctx, task.ID, cause.Error()); err != nil {
			logger.Error("failed to bury task", logging.Error(err))
		}
		return
	}
	logging.WarnWithContext(logger, "task failed; requeued", "task_requeued",
		logging.Error(cause),
		logging.Duration("delay", m.errorBackoff),
		logging.String(logging.FieldErrorHint, "check record store health"),
		logging.String(logging.FieldImpact, "job resumes from its last checkpoint"),
	)
	if err := m.store.Requeue(ctx, task.ID, m.errorBackoff, cause.Error()); err != nil {
		logger.Error("failed to requeue task", logging.Error(err))
	}
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next task",
		logging.Error(err),
		logging.String(logging.FieldEventType, "task_claim_failed"),
		logging.String(logging.FieldErrorHint, "check record store access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorBackoff):
	}
}

func (m *Manager) waitForTaskOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}
