package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

var expectedTables = []string{"jobs", "tasks", "goose_db_version"}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// TaskStats returns a count of tasks grouped by status.
func (s *Store) TaskStats(ctx context.Context) (map[TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[TaskStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[TaskStatus(status)] = count
	}
	return stats, rows.Err()
}

// Health aggregates job and task state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	tasks, err := s.TaskStats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{
		Pending:      stats[StatusPending],
		Processing:   stats[StatusProcessing],
		Failed:       stats[StatusFailed],
		Completed:    stats[StatusCompleted],
		QueuedTasks:  tasks[TaskQueued],
		RunningTasks: tasks[TaskRunning],
		DeadTasks:    tasks[TaskDead],
	}
	for _, count := range stats {
		health.Total += count
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the record store.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{Driver: s.driver, Location: s.location}
	if s.db == nil {
		return health, fmt.Errorf("record store connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping record store: %w", err)
	}
	health.Reachable = true

	present, err := s.tableNames(connCtx)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	for _, table := range expectedTables {
		if _, ok := present[table]; ok {
			health.TablesPresent = append(health.TablesPresent, table)
		} else {
			health.MissingTables = append(health.MissingTables, table)
		}
	}
	if len(health.MissingTables) > 0 {
		return health, nil
	}

	if version, err := s.SchemaVersion(connCtx); err == nil {
		health.SchemaVersion = version
	}
	row := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM jobs")
	if err := row.Scan(&health.TotalJobs); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count jobs: %w", err)
	}

	if s.driver != DriverSQLite {
		health.IntegrityCheck = true
		return health, nil
	}
	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}

func (s *Store) tableNames(ctx context.Context) (map[string]struct{}, error) {
	query := "SELECT name FROM sqlite_master WHERE type = 'table'"
	if s.driver == DriverPostgres {
		query = "SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema()"
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}
