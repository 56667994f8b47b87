package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"notesmith/internal/services"
)

const jobColumns = "id, source_ref, status, media_id, media_path, transcript, notes, last_error, stage, halted, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job        Job
		status     string
		mediaID    sql.NullString
		mediaPath  sql.NullString
		transcript sql.NullString
		notes      sql.NullString
		lastError  sql.NullString
		stage      sql.NullString
		halted     sql.NullInt64
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.SourceRef,
		&status,
		&mediaID,
		&mediaPath,
		&transcript,
		&notes,
		&lastError,
		&stage,
		&halted,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.MediaID = mediaID.String
	job.MediaPath = mediaPath.String
	job.Transcript = transcript.String
	job.Notes = notes.String
	job.LastError = lastError.String
	job.Stage = stage.String
	job.Halted = halted.Valid && halted.Int64 != 0
	if created, err := parseTime(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTime(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}

// Create inserts a new job. The status defaults to pending; the record must
// satisfy the job invariants.
func (s *Store) Create(ctx context.Context, init JobInit) (*Job, error) {
	now := time.Now().UTC()
	job := Job{
		ID:         uuid.NewString(),
		SourceRef:  strings.TrimSpace(init.SourceRef),
		Status:     init.Status,
		MediaID:    strings.TrimSpace(init.MediaID),
		MediaPath:  strings.TrimSpace(init.MediaPath),
		Transcript: init.Transcript,
		Notes:      init.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if job.Status == "" {
		job.Status = StatusPending
	}
	if err := Validate(job); err != nil {
		return nil, err
	}
	timestamp := formatTime(now)
	_, err := s.exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.SourceRef,
		string(job.Status),
		nullableString(job.MediaID),
		nullableString(job.MediaPath),
		nullableString(job.Transcript),
		nullableString(job.Notes),
		nil,
		nil,
		0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return &job, nil
}

// Get returns the job with id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update applies patch to the job in a single transaction. A missing job
// yields services.ErrNotFound; a patch that would break an invariant yields
// ErrInvariant and nothing is written.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*Job, error) {
	var updated *Job
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, s.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`+s.lockClause()), id)
		current, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "", "update job", id, nil)
		}
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		next := patch.Apply(*current)
		if err := Validate(next); err != nil {
			return err
		}
		next.UpdatedAt = time.Now().UTC()
		_, err = tx.ExecContext(ctx, s.rebind(`UPDATE jobs SET
            status = ?, media_id = ?, media_path = ?, transcript = ?, notes = ?,
            last_error = ?, stage = ?, halted = ?, updated_at = ?
        WHERE id = ?`),
			string(next.Status),
			nullableString(next.MediaID),
			nullableString(next.MediaPath),
			nullableString(next.Transcript),
			nullableString(next.Notes),
			nullableString(next.LastError),
			nullableString(next.Stage),
			boolToInt(next.Halted),
			formatTime(next.UpdatedAt),
			next.ID,
		)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Find returns jobs matching filter, ordered by creation time.
func (s *Store) Find(ctx context.Context, filter Filter) ([]*Job, error) {
	var (
		clauses []string
		args    []any
	)
	if ref := strings.TrimSpace(filter.SourceRef); ref != "" {
		clauses = append(clauses, "source_ref = ?")
		args = append(args, ref)
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+makePlaceholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if filter.HasNotes != nil {
		clauses = append(clauses, presenceClause("notes", *filter.HasNotes))
	}
	if filter.HasTranscript != nil {
		clauses = append(clauses, presenceClause("transcript", *filter.HasTranscript))
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if filter.Order == OrderOldest {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("find jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func presenceClause(column string, present bool) string {
	if present {
		return column + " IS NOT NULL"
	}
	return column + " IS NULL"
}

// List returns jobs newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	return s.Find(ctx, Filter{Statuses: statuses, Order: OrderNewest})
}

// Remove deletes a job and its tasks.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM tasks WHERE job_id = ?`), id); err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM jobs WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return services.Wrap(services.ErrNotFound, "", "remove job", id, nil)
		}
		return nil
	})
}
