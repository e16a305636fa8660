package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/google/uuid"
)

// CommentResult is returned by AddComment.
type CommentResult struct {
	Comment *models.Comment
	Task    *models.Task
	// Owner is nil when the task is unassigned.
	Owner *models.User
}

// AddComment inserts a comment on an existing task and returns it together
// with the task and its owner as seen by the same transaction.
func (s *Store) AddComment(ctx context.Context, taskID, authorID, text string, now time.Time) (*CommentResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := s.getTask(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now.UTC(),
	}
	if _, err := tx.ExecContext(ctx,
		s.q(`INSERT INTO comments (id, task_id, author_id, text, created_at) VALUES (?, ?, ?, ?, ?)`),
		comment.ID, comment.TaskID, comment.AuthorID, comment.Text, toNanos(comment.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}

	var owner *models.User
	if task.OwnerID != "" {
		owner, err = s.getUser(ctx, tx, task.OwnerID)
		if err != nil && !errors.Is(err, apperr.ErrUserNotFound) {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &CommentResult{Comment: comment, Task: task, Owner: owner}, nil
}

// ListComments returns the comments of a task, oldest first.
func (s *Store) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, task_id, author_id, text, created_at FROM comments WHERE task_id = ? ORDER BY created_at ASC, id ASC`),
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var (
			c         models.Comment
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = fromNanos(createdAt)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
