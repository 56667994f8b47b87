package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"notesmith/internal/logging"
)

// TaskHeartbeatStore is the part of the task queue the heartbeat monitor
// uses.
type TaskHeartbeatStore interface {
	HeartbeatTask(ctx context.Context, taskID string) error
	ReclaimStaleTasks(ctx context.Context, cutoff time.Time) (int64, error)
}

// HeartbeatMonitor manages task heartbeats and stale task reclamation.
type HeartbeatMonitor struct {
	store             TaskHeartbeatStore
	logger            *slog.Logger
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
}

// NewHeartbeatMonitor creates a new monitor.
func NewHeartbeatMonitor(store TaskHeartbeatStore, logger *slog.Logger, interval, timeout time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		store:             store,
		logger:            logging.NewComponentLogger(logger, "workflow-heartbeat"),
		heartbeatInterval: interval,
		heartbeatTimeout:  timeout,
	}
}

// ReclaimStaleTasks returns running tasks that stopped heartbeating to the
// queue.
func (h *HeartbeatMonitor) ReclaimStaleTasks(ctx context.Context) (int64, error) {
	if h.heartbeatTimeout <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-h.heartbeatTimeout)
	reclaimed, err := h.store.ReclaimStaleTasks(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed stale tasks",
			logging.Int64("count", reclaimed),
			logging.String(logging.FieldEventType, "tasks_reclaimed"),
		)
	}
	return reclaimed, nil
}

// RunReclaimer calls ReclaimStaleTasks every heartbeat interval until ctx is
// canceled.
func (h *HeartbeatMonitor) RunReclaimer(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := h.ReclaimStaleTasks(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.WarnWithContext(h.logger, "reclaim stale tasks failed; stuck tasks may remain", "heartbeat_reclaim_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check record store access"),
				)
			}
		}
	}
}

// StartLoop refreshes the heartbeat of taskID until ctx is canceled.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, wg *sync.WaitGroup, taskID string) {
	defer wg.Done()
	if h.heartbeatInterval <= 0 {
		return
	}
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(ctx, h.logger)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.HeartbeatTask(ctx, taskID); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("daemon shutting down, heartbeat update cancelled")
				} else {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
			}
		}
	}
}
