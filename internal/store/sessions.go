package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/ayush/useradmin/internal/models"
)

// SessionRepository stores sessions in PostgreSQL.
type SessionRepository struct {
	db Querier
}

// NewSessionRepository creates a session repository.
func NewSessionRepository(db Querier) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts s. A missing owner yields models.ErrNotFound.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.UserID, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.ErrNotFound
		}
		return oops.With("operation", "create session").With("user_id", s.UserID).Wrap(err)
	}
	return nil
}

// FindByID returns the session with id whether or not it has expired.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "find session").Wrap(err)
	}
	return &s, nil
}

// DeleteByID removes the session. Zero affected rows is not an error.
func (r *SessionRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return oops.With("operation", "delete session").Wrap(err)
	}
	return nil
}

// DeleteAllForUser removes every session owned by userID.
func (r *SessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return oops.With("operation", "delete user sessions").With("user_id", userID).Wrap(err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, oops.With("operation", "delete expired sessions").Wrap(err)
	}
	return tag.RowsAffected(), nil
}
