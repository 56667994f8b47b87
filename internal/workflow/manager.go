package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"notesmith/internal/config"
	"notesmith/internal/logging"
	"notesmith/internal/queue"
)

// maxTaskDeliveries bounds how often a task is handed out after store
// errors before it is buried.
const maxTaskDeliveries = 5

// TaskStore is the record store surface the manager drives.
type TaskStore interface {
	TaskHeartbeatStore
	Claim(ctx context.Context) (*queue.Task, error)
	Complete(ctx context.Context, taskID string) error
	Requeue(ctx context.Context, taskID string, delay time.Duration, reason string) error
	Bury(ctx context.Context, taskID, reason string) error
	ReclaimAllRunning(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	TaskStats(ctx context.Context) (map[queue.TaskStatus]int, error)
}

// Manager runs the worker pool that claims tasks and hands their jobs to the
// coordinator.
type Manager struct {
	store        TaskStore
	coordinator  *Coordinator
	logger       *slog.Logger
	workers      int
	pollInterval time.Duration
	errorBackoff time.Duration

	heartbeat *HeartbeatMonitor

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store TaskStore, coordinator *Coordinator, logger *slog.Logger) *Manager {
	workers := cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		store:        store,
		coordinator:  coordinator,
		logger:       logging.NewComponentLogger(logger, "workflow-manager"),
		workers:      workers,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorBackoff: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
}

// SetPollInterval overrides the idle wait between claims.
func (m *Manager) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		m.pollInterval = interval
	}
}
