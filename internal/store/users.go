package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fentz26/taskclock/internal/apperr"
	"github.com/fentz26/taskclock/internal/models"
)

// UpsertUser records an identity, updating its e-mail when one is supplied.
func (s *Store) UpsertUser(ctx context.Context, id, email string, now time.Time) (*models.User, error) {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END`),
		id, email, toNanos(now),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, s.db, id)
}

func (s *Store) getUser(ctx context.Context, q queryRower, id string) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, s.q(`SELECT id, email FROM users WHERE id = ?`), id).Scan(&u.ID, &u.Email)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}
