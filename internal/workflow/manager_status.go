package workflow

import (
	"context"

	"notesmith/internal/logging"
	"notesmith/internal/queue"
	"notesmith/internal/stage"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running     bool
	Workers     int
	LastError   string
	LastJob     *queue.Job
	QueueStats  map[queue.Status]int
	TaskStats   map[queue.TaskStatus]int
	StageHealth map[string]stage.Health
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastJob := m.lastJob
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
	}
	taskStats, err := m.store.TaskStats(ctx)
	if err != nil {
		m.logger.Warn("failed to read task stats", logging.Error(err))
	}

	summary := StatusSummary{
		Running:     running,
		Workers:     m.workers,
		QueueStats:  stats,
		TaskStats:   taskStats,
		StageHealth: StageHealth(ctx, m.coordinator.Stages()),
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastJob != nil {
		copy := *lastJob
		summary.LastJob = &copy
	}
	return summary
}

// StageHealth runs every executor's health check.
func StageHealth(ctx context.Context, stages StageSet) map[string]stage.Health {
	executors := stages.Executors()
	health := make(map[string]stage.Health, len(executors))
	for _, exec := range executors {
		health[exec.Name().String()] = exec.HealthCheck(ctx)
	}
	return health
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	if job != nil {
		copy := *job
		m.lastJob = &copy
	} else {
		m.lastJob = nil
	}
	m.mu.Unlock()
}
