// Package aggregate computes time-spent statistics over the time log.
package aggregate

import (
	"context"
	"sort"
	"time"

	"github.com/fentz26/taskclock/internal/models"
)

// Source supplies raw sums. *store.Store implements it.
type Source interface {
	SumDurationForTask(ctx context.Context, taskID string) (int, error)
	// TaskTotals may return rows in any order.
	TaskTotals(ctx context.Context) ([]models.TaskTotal, error)
	SumDurationForUserBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// Engine answers aggregate queries straight from a Source.
type Engine struct {
	src Source
}

// NewEngine creates an engine over src.
func NewEngine(src Source) *Engine {
	return &Engine{src: src}
}

// TotalDuration returns the finished minutes logged against taskID.
func (e *Engine) TotalDuration(ctx context.Context, taskID string) (int, error) {
	return e.src.SumDurationForTask(ctx, taskID)
}

// TopByLoggedTime returns at most n tasks with the most logged time, largest
// first. Ties are broken by task id. Tasks without logged time are omitted.
func (e *Engine) TopByLoggedTime(ctx context.Context, n int) ([]models.TaskTotal, error) {
	if n <= 0 {
		return []models.TaskTotal{}, nil
	}
	totals, err := e.src.TaskTotals(ctx)
	if err != nil {
		return nil, err
	}
	return rank(totals, n), nil
}

// MonthlySum returns userID's finished minutes started in the calendar month
// before ref, in ref's location.
func (e *Engine) MonthlySum(ctx context.Context, userID string, ref time.Time) (int, error) {
	from, to := PreviousMonth(ref)
	return e.src.SumDurationForUserBetween(ctx, userID, from, to)
}

// PreviousMonth returns the half-open range [from, to) covering the calendar
// month before ref.
func PreviousMonth(ref time.Time) (from, to time.Time) {
	to = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	from = to.AddDate(0, -1, 0)
	return from, to
}

func rank(totals []models.TaskTotal, n int) []models.TaskTotal {
	out := make([]models.TaskTotal, 0, len(totals))
	for _, t := range totals {
		if t.TotalMinutes > 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalMinutes != out[j].TotalMinutes {
			return out[i].TotalMinutes > out[j].TotalMinutes
		}
		return out[i].TaskID < out[j].TaskID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
