package store

import (
	"context"
	"fmt"

	"github.com/fentz26/taskclock/internal/models"
)

// CreateAttachment records the metadata row for an uploaded object.
// The caller supplies ID, object key and upload time.
func (s *Store) CreateAttachment(ctx context.Context, a *models.Attachment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.getTask(ctx, tx, a.TaskID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO attachments (id, task_id, owner_id, file_name, object_key, uploaded_at) VALUES (?, ?, ?, ?, ?, ?)`),
		a.ID, a.TaskID, a.OwnerID, a.FileName, a.ObjectKey, toNanos(a.UploadedAt),
	); err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return tx.Commit()
}

// ListAttachments returns the attachments of a task, oldest first.
func (s *Store) ListAttachments(ctx context.Context, taskID string) ([]models.Attachment, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, task_id, owner_id, file_name, object_key, uploaded_at FROM attachments WHERE task_id = ? ORDER BY uploaded_at ASC, id ASC`),
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var items []models.Attachment
	for rows.Next() {
		var (
			a          models.Attachment
			uploadedAt int64
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.OwnerID, &a.FileName, &a.ObjectKey, &uploadedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		a.UploadedAt = fromNanos(uploadedAt)
		items = append(items, a)
	}
	return items, rows.Err()
}
