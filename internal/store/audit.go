package store

import (
	"context"
	"fmt"
	"time"

	"github.com/fentz26/taskclock/internal/models"
	"github.com/google/uuid"
)

// WriteAudit writes a decision record.
func (s *Store) WriteAudit(ctx context.Context, action, inputsHash, outcome, taskID, details string, now time.Time) (*models.AuditEntry, error) {
	entry := &models.AuditEntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		TaskID:     taskID,
		Details:    details,
		Timestamp:  now.UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO audit_log (id, action, inputs_hash, outcome, task_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.Action, entry.InputsHash, entry.Outcome, nullString(entry.TaskID), entry.Details, toNanos(entry.Timestamp),
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return entry, nil
}

// ListAudit returns the decision records of a task, oldest first.
func (s *Store) ListAudit(ctx context.Context, taskID string) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, action, inputs_hash, outcome, COALESCE(task_id, ''), COALESCE(details, ''), timestamp
			FROM audit_log WHERE task_id = ? ORDER BY timestamp ASC, id ASC`),
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			e  models.AuditEntry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &e.TaskID, &e.Details, &ts); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Timestamp = fromNanos(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
