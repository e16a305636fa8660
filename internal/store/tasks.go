package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/models"
	"github.com/google/uuid"
)

const taskColumns = `id, title, description, status, owner_id, completed, created_by, created_at, updated_at`

// likeEscaper quotes LIKE wildcards so a query matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type rowScanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TaskFilter narrows ListTasks. Empty fields match everything.
type TaskFilter struct {
	Status  models.TaskStatus
	OwnerID string
	// Query matches a case-insensitive substring of the title.
	Query string
}

// CompleteResult is returned by CompleteTask.
type CompleteResult struct {
	Task *models.Task
	// Commenters are the distinct authors of the task's comments, ordered by id.
	Commenters []models.User
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task      models.Task
		ownerID   sql.NullString
		createdBy sql.NullString
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Status, &ownerID, &task.Completed, &createdBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	task.OwnerID = ownerID.String
	task.CreatedBy = createdBy.String
	task.CreatedAt = fromNanos(createdAt)
	task.UpdatedAt = fromNanos(updatedAt)
	return &task, nil
}

func (s *Store) getTask(ctx context.Context, q queryRower, id string) (*models.Task, error) {
	task, err := scanTask(q.QueryRowContext(ctx, s.q(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id))
	if err == sql.ErrNoRows {
		return nil, apperr.ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// CreateTask inserts a new OPEN task.
func (s *Store) CreateTask(ctx context.Context, title, description, createdBy string, now time.Time) (*models.Task, error) {
	now = now.UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Status:      models.TaskStatusOpen,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO tasks (id, title, description, status, completed, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		task.ID, task.Title, task.Description, task.Status, false, nullString(createdBy), toNanos(now), toNanos(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	return s.getTask(ctx, s.db, id)
}

// ListTasks returns tasks matching filter, oldest first.
func (s *Store) ListTasks(ctx context.Context, filter TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, filter.Status)
	}
	if filter.OwnerID != "" {
		where = append(where, `owner_id = ?`)
		args = append(args, filter.OwnerID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q))+"%")
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateTaskFields edits title and/or description. Nil leaves a field as is.
func (s *Store) UpdateTaskFields(ctx context.Context, id string, title, description *string, now time.Time) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := s.getTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		task.Title = *title
	}
	if description != nil {
		task.Description = *description
	}
	task.UpdatedAt = now.UTC()

	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE tasks SET title = ?, description = ?, updated_at = ? WHERE id = ?`),
		task.Title, task.Description, toNanos(task.UpdatedAt), id,
	); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return task, nil
}

// AssignTask sets the owner of a task. Both the task and the user must exist.
// The status is left untouched.
func (s *Store) AssignTask(ctx context.Context, taskID, userID string, now time.Time) (*models.Task, *models.User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := s.getTask(ctx, tx, taskID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.getUser(ctx, tx, userID)
	if err != nil {
		return nil, nil, err
	}

	task.OwnerID = user.ID
	task.UpdatedAt = now.UTC()
	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE tasks SET owner_id = ?, updated_at = ? WHERE id = ?`),
		user.ID, toNanos(task.UpdatedAt), taskID,
	); err != nil {
		return nil, nil, fmt.Errorf("update task owner: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit transaction: %w", err)
	}
	return task, user, nil
}

// TransitionTask moves a task to status to. check is called with the current
// status inside the transaction and aborts the update when it returns an error.
// The completion flag is written from the new status in the same statement.
func (s *Store) TransitionTask(ctx context.Context, taskID string, to models.TaskStatus, now time.Time, check func(from models.TaskStatus) error) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := s.transition(ctx, tx, taskID, to, now, check)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return task, nil
}

// CompleteTask marks a task COMPLETED and, in the same transaction, collects
// the distinct users who commented on it.
func (s *Store) CompleteTask(ctx context.Context, taskID string, now time.Time, check func(from models.TaskStatus) error) (*CompleteResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := s.transition(ctx, tx, taskID, models.TaskStatusCompleted, now, check)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, s.q(`
		SELECT DISTINCT c.author_id, COALESCE(u.email, '')
		FROM comments c LEFT JOIN users u ON u.id = c.author_id
		WHERE c.task_id = ?
		ORDER BY c.author_id`), taskID)
	if err != nil {
		return nil, fmt.Errorf("query commenters: %w", err)
	}
	defer rows.Close()

	var commenters []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email); err != nil {
			return nil, fmt.Errorf("scan commenter: %w", err)
		}
		commenters = append(commenters, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &CompleteResult{Task: task, Commenters: commenters}, nil
}

func (s *Store) transition(ctx context.Context, tx *sql.Tx, taskID string, to models.TaskStatus, now time.Time, check func(from models.TaskStatus) error) (*models.Task, error) {
	task, err := s.getTask(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(task.Status); err != nil {
			return nil, err
		}
	}

	from := task.Status
	task.Status = to
	task.Completed = to == models.TaskStatusCompleted
	task.UpdatedAt = now.UTC()

	result, err := tx.ExecContext(ctx,
		s.q(`UPDATE tasks SET status = ?, completed = ?, updated_at = ? WHERE id = ? AND status = ?`),
		task.Status, task.Completed, toNanos(task.UpdatedAt), taskID, from,
	)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Task was modified by another writer between our read and update
		return nil, apperr.ErrConcurrentUpdate
	}
	return task, nil
}

// DeleteTask removes a task together with its comments, time logs and
// attachment rows.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Children go first; the cascade must hold even without the foreign_keys pragma.
	for _, stmt := range []string{
		`DELETE FROM comments WHERE task_id = ?`,
		`DELETE FROM time_logs WHERE task_id = ?`,
		`DELETE FROM attachments WHERE task_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
			return fmt.Errorf("delete task children: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, s.q(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return apperr.ErrTaskNotFound
	}
	return tx.Commit()
}
