package aggregate

import (
	"context"
	"time"

	"github.com/fentz26/taskclock/internal/clock"
	"github.com/fentz26/taskclock/internal/models"
)

// DefaultTTL is how long a cached aggregate is served.
const DefaultTTL = 60 * time.Second

type monthKey struct {
	userID string
	year   int
	month  time.Month
	loc    string
}

// Cached serves the expensive aggregates from TTL caches in front of an
// Engine. Writes to the time log do not invalidate entries, so a result may
// be up to one TTL old.
type Cached struct {
	engine  *Engine
	top     *Cache[int, []models.TaskTotal]
	monthly *Cache[monthKey, int]
}

// NewCached wraps engine. ttl <= 0 uses DefaultTTL.
func NewCached(engine *Engine, c clock.Clock, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cached{
		engine:  engine,
		top:     NewCache[int, []models.TaskTotal](c, ttl),
		monthly: NewCache[monthKey, int](c, ttl),
	}
}

// TotalDuration is not cached.
func (c *Cached) TotalDuration(ctx context.Context, taskID string) (int, error) {
	return c.engine.TotalDuration(ctx, taskID)
}

// TopByLoggedTime is Engine.TopByLoggedTime cached by n.
func (c *Cached) TopByLoggedTime(ctx context.Context, n int) ([]models.TaskTotal, error) {
	if n <= 0 {
		return []models.TaskTotal{}, nil
	}
	v, err := c.top.GetOrLoad(n, func() ([]models.TaskTotal, error) {
		return c.engine.TopByLoggedTime(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.TaskTotal, len(v))
	copy(out, v)
	return out, nil
}

// MonthlySum is Engine.MonthlySum cached by user and reference month.
func (c *Cached) MonthlySum(ctx context.Context, userID string, ref time.Time) (int, error) {
	key := monthKey{userID: userID, year: ref.Year(), month: ref.Month(), loc: ref.Location().String()}
	return c.monthly.GetOrLoad(key, func() (int, error) {
		return c.engine.MonthlySum(ctx, userID, ref)
	})
}
