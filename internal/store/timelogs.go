package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/google/uuid"
)

const timeLogColumns = `id, task_id, user_id, started_at, duration_minutes`

func scanTimeLog(row rowScanner) (*models.TimeLogEntry, error) {
	var (
		entry     models.TimeLogEntry
		startedAt int64
		duration  sql.NullInt64
	)
	if err := row.Scan(&entry.ID, &entry.TaskID, &entry.UserID, &startedAt, &duration); err != nil {
		return nil, err
	}
	entry.StartedAt = fromNanos(startedAt)
	if duration.Valid {
		d := int(duration.Int64)
		entry.DurationMinutes = &d
	}
	return &entry, nil
}

// StartTimer atomically checks that (taskID, userID) has no open entry and
// inserts one starting at now. A concurrent insert that slips past the check
// is rejected by the partial unique index and reported the same way.
func (s *Store) StartTimer(ctx context.Context, taskID, userID string, now time.Time) (*models.TimeLogEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.getTask(ctx, tx, taskID); err != nil {
		return nil, err
	}

	var existingID string
	err = tx.QueryRowContext(ctx,
		s.q(`SELECT id FROM time_logs WHERE task_id = ? AND user_id = ? AND duration_minutes IS NULL`),
		taskID, userID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("check open timer: %w", err)
	}
	if existingID != "" {
		return nil, apperr.ErrTimerAlreadyRunning
	}

	entry := &models.TimeLogEntry{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		UserID:    userID,
		StartedAt: now.UTC(),
	}
	if err := s.insertOpenTimer(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.ErrTimerAlreadyRunning
		}
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return entry, nil
}

// insertOpenTimer writes a running entry. The partial unique index turns a
// second open row for the same (task, user) into ErrTimerAlreadyRunning.
func (s *Store) insertOpenTimer(ctx context.Context, ex execer, entry *models.TimeLogEntry) error {
	_, err := ex.ExecContext(ctx,
		s.q(`INSERT INTO time_logs (id, task_id, user_id, started_at, duration_minutes) VALUES (?, ?, ?, ?, NULL)`),
		entry.ID, entry.TaskID, entry.UserID, toNanos(entry.StartedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.ErrTimerAlreadyRunning
		}
		return fmt.Errorf("insert time log: %w", err)
	}
	return nil
}

// FinishTimer closes the open entry for (taskID, userID). compute receives the
// entry's start time and returns the duration to persist; an error from
// compute aborts the transaction unchanged.
func (s *Store) FinishTimer(ctx context.Context, taskID, userID string, compute func(start time.Time) (int, error)) (*models.TimeLogEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	entry, err := scanTimeLog(tx.QueryRowContext(ctx,
		s.q(`SELECT `+timeLogColumns+` FROM time_logs WHERE task_id = ? AND user_id = ? AND duration_minutes IS NULL`),
		taskID, userID,
	))
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNoRunningTimer
	}
	if err != nil {
		return nil, fmt.Errorf("query open timer: %w", err)
	}

	minutes, err := compute(entry.StartedAt)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		s.q(`UPDATE time_logs SET duration_minutes = ? WHERE id = ? AND duration_minutes IS NULL`),
		minutes, entry.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update time log: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Finished by another request between our read and update
		return nil, apperr.ErrNoRunningTimer
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	entry.DurationMinutes = &minutes
	return entry, nil
}

// LogTime inserts an already finished entry.
func (s *Store) LogTime(ctx context.Context, taskID, userID string, startedAt time.Time, minutes int) (*models.TimeLogEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.getTask(ctx, tx, taskID); err != nil {
		return nil, err
	}

	entry := &models.TimeLogEntry{
		ID:              uuid.New().String(),
		TaskID:          taskID,
		UserID:          userID,
		StartedAt:       startedAt.UTC(),
		DurationMinutes: &minutes,
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO time_logs (id, task_id, user_id, started_at, duration_minutes) VALUES (?, ?, ?, ?, ?)`),
		entry.ID, entry.TaskID, entry.UserID, toNanos(entry.StartedAt), minutes,
	); err != nil {
		return nil, fmt.Errorf("insert time log: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return entry, nil
}

// GetOpenTimer returns the running entry for (taskID, userID).
func (s *Store) GetOpenTimer(ctx context.Context, taskID, userID string) (*models.TimeLogEntry, error) {
	entry, err := scanTimeLog(s.db.QueryRowContext(ctx,
		s.q(`SELECT `+timeLogColumns+` FROM time_logs WHERE task_id = ? AND user_id = ? AND duration_minutes IS NULL`),
		taskID, userID,
	))
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNoRunningTimer
	}
	if err != nil {
		return nil, fmt.Errorf("query open timer: %w", err)
	}
	return entry, nil
}

// ListTimeLogs returns all entries of a task ordered by start time.
func (s *Store) ListTimeLogs(ctx context.Context, taskID string) ([]models.TimeLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT `+timeLogColumns+` FROM time_logs WHERE task_id = ? ORDER BY started_at ASC, id ASC`),
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query time logs: %w", err)
	}
	defer rows.Close()

	var entries []models.TimeLogEntry
	for rows.Next() {
		entry, err := scanTimeLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time log: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}
