package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const taskColumns = "id, job_id, stage, payload, status, attempts, available_at, claimed_at, heartbeat_at, last_error, created_at, updated_at"

const pgUniqueViolation = "23505"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		task         Task
		status       string
		payload      sql.NullString
		availableRaw sql.NullString
		claimedRaw   sql.NullString
		heartbeatRaw sql.NullString
		lastError    sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)
	if err := scanner.Scan(
		&task.ID,
		&task.JobID,
		&task.Stage,
		&payload,
		&status,
		&task.Attempts,
		&availableRaw,
		&claimedRaw,
		&heartbeatRaw,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	task.Status = TaskStatus(status)
	task.Payload = payload.String
	task.LastError = lastError.String
	if t, err := parseTime(availableRaw.String); err == nil {
		task.AvailableAt = t
	}
	if claimedRaw.Valid {
		if t, err := parseTime(claimedRaw.String); err == nil {
			task.ClaimedAt = &t
		}
	}
	if heartbeatRaw.Valid {
		if t, err := parseTime(heartbeatRaw.String); err == nil {
			task.HeartbeatAt = &t
		}
	}
	if t, err := parseTime(createdRaw.String); err == nil {
		task.CreatedAt = t
	}
	if t, err := parseTime(updatedRaw.String); err == nil {
		task.UpdatedAt = t
	}
	return &task, nil
}

// Enqueue adds a task for jobID. When the job already has a queued task, that
// task is returned instead of adding a duplicate.
func (s *Store) Enqueue(ctx context.Context, stage, jobID, payload string) (*Task, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("enqueue: job id required")
	}
	var task *Task
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE job_id = ? AND status = ? ORDER BY created_at LIMIT 1`),
			jobID, string(TaskQueued))
		existing, err := scanTask(row)
		if err == nil {
			task = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("find queued task: %w", err)
		}

		now := time.Now().UTC()
		fresh := Task{
			ID:          uuid.NewString(),
			JobID:       jobID,
			Stage:       strings.TrimSpace(stage),
			Payload:     payload,
			Status:      TaskQueued,
			AvailableAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		timestamp := formatTime(now)
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			fresh.ID, fresh.JobID, fresh.Stage, nullableString(fresh.Payload), string(fresh.Status), 0,
			timestamp, nil, nil, nil, timestamp, timestamp,
		); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		task = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Claim marks the oldest available queued task running and returns it. It
// skips jobs that already have a running task and returns nil when nothing
// is claimable.
func (s *Store) Claim(ctx context.Context) (*Task, error) {
	now := formatTime(time.Now().UTC())
	subquery := `SELECT id FROM tasks
        WHERE status = ? AND available_at <= ?
          AND job_id NOT IN (SELECT job_id FROM tasks WHERE status = ?)
        ORDER BY available_at, created_at
        LIMIT 1`
	if s.driver == DriverPostgres {
		subquery += " FOR UPDATE SKIP LOCKED"
	}
	query := `UPDATE tasks
        SET status = ?, attempts = attempts + 1, claimed_at = ?, heartbeat_at = ?, updated_at = ?
        WHERE id = (` + subquery + `) AND status = ?
        RETURNING ` + taskColumns

	var task *Task
	err := s.retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, s.rebind(query),
			string(TaskRunning), now, now, now,
			string(TaskQueued), now, string(TaskRunning),
			string(TaskQueued),
		)
		claimed, err := scanTask(row)
		if err != nil {
			return err
		}
		task = claimed
		return nil
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case isUniqueViolation(err):
		// Another worker started this job between our read and write.
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("claim task: %w", err)
	}
	return task, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetTask returns the task with id, or nil when it does not exist.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// TasksForJob returns every task recorded for a job, oldest first.
func (s *Store) TasksForJob(ctx context.Context, jobID string) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+taskColumns+` FROM tasks WHERE job_id = ? ORDER BY created_at`), jobID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Complete marks a running task done.
func (s *Store) Complete(ctx context.Context, taskID string) error {
	return s.setTaskState(ctx, taskID, TaskDone, 0, "")
}

// Requeue returns a running task to the queue after delay, recording reason.
func (s *Store) Requeue(ctx context.Context, taskID string, delay time.Duration, reason string) error {
	return s.setTaskState(ctx, taskID, TaskQueued, delay, reason)
}

// Bury marks a task dead so it is never delivered again.
func (s *Store) Bury(ctx context.Context, taskID, reason string) error {
	return s.setTaskState(ctx, taskID, TaskDead, 0, reason)
}

func (s *Store) setTaskState(ctx context.Context, taskID string, status TaskStatus, delay time.Duration, reason string) error {
	now := time.Now().UTC()
	res, err := s.exec(ctx,
		`UPDATE tasks SET status = ?, available_at = ?, claimed_at = NULL, heartbeat_at = NULL, last_error = ?, updated_at = ? WHERE id = ?`,
		string(status),
		formatTime(now.Add(delay)),
		nullableString(strings.TrimSpace(reason)),
		formatTime(now),
		taskID,
	)
	if err != nil {
		return fmt.Errorf("set task %s: %w", status, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set task %s: task %s not found", status, taskID)
	}
	return nil
}

// HeartbeatTask refreshes the heartbeat of a running task.
func (s *Store) HeartbeatTask(ctx context.Context, taskID string) error {
	now := formatTime(time.Now().UTC())
	res, err := s.exec(ctx,
		`UPDATE tasks SET heartbeat_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now, now, taskID, string(TaskRunning),
	)
	if err != nil {
		return fmt.Errorf("task heartbeat: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task heartbeat: task %s is not running", taskID)
	}
	return nil
}

// ReclaimStaleTasks returns running tasks whose heartbeat is older than
// cutoff to the queue.
func (s *Store) ReclaimStaleTasks(ctx context.Context, cutoff time.Time) (int64, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.exec(ctx,
		`UPDATE tasks SET status = ?, claimed_at = NULL, heartbeat_at = NULL, available_at = ?, last_error = ?, updated_at = ?
        WHERE status = ? AND (heartbeat_at IS NULL OR heartbeat_at < ?)`,
		string(TaskQueued), now, "reclaimed after missed heartbeat", now,
		string(TaskRunning), formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale tasks: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimAllRunning returns every running task to the queue. Used at daemon
// startup, when no worker can still own one.
func (s *Store) ReclaimAllRunning(ctx context.Context) (int64, error) {
	return s.ReclaimStaleTasks(ctx, time.Now().UTC().Add(time.Hour))
}
