package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fentz26/taskclock/internal/models"
)

// SumDurationForTask returns the finished minutes logged against a task.
func (s *Store) SumDurationForTask(ctx context.Context, taskID string) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT SUM(duration_minutes) FROM time_logs WHERE task_id = ? AND duration_minutes IS NOT NULL`),
		taskID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum task duration: %w", err)
	}
	return int(total.Int64), nil
}

// TaskTotals returns the finished minutes of every task that has at least one
// finished entry. Rows come back in no particular order.
func (s *Store) TaskTotals(ctx context.Context) ([]models.TaskTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.title, SUM(l.duration_minutes)
		FROM time_logs l JOIN tasks t ON t.id = l.task_id
		WHERE l.duration_minutes IS NOT NULL
		GROUP BY t.id, t.title`)
	if err != nil {
		return nil, fmt.Errorf("query task totals: %w", err)
	}
	defer rows.Close()

	var totals []models.TaskTotal
	for rows.Next() {
		var (
			tt  models.TaskTotal
			sum sql.NullInt64
		)
		if err := rows.Scan(&tt.TaskID, &tt.Title, &sum); err != nil {
			return nil, fmt.Errorf("scan task total: %w", err)
		}
		tt.TotalMinutes = int(sum.Int64)
		totals = append(totals, tt)
	}
	return totals, rows.Err()
}

// SumDurationForUserBetween returns the finished minutes of userID's entries
// whose start lies in [from, to).
func (s *Store) SumDurationForUserBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT SUM(duration_minutes) FROM time_logs
			WHERE user_id = ? AND duration_minutes IS NOT NULL AND started_at >= ? AND started_at < ?`),
		userID, toNanos(from), toNanos(to),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum user duration: %w", err)
	}
	return int(total.Int64), nil
}
