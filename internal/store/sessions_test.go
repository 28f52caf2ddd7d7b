package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/useradmin/internal/models"
)

func TestSessionRepository_Create(t *testing.T) {
	ctx := context.Background()
	s := &models.Session{ID: "tok", UserID: "u1", CreatedAt: createdAt, ExpiresAt: createdAt.Add(24 * time.Hour)}

	t.Run("inserts", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs("tok", "u1", s.CreatedAt, s.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewSessionRepository(mock).Create(ctx, s))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown owner", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO sessions`).
			WithArgs("tok", "u1", s.CreatedAt, s.ExpiresAt).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

		assert.ErrorIs(t, NewSessionRepository(mock).Create(ctx, s), models.ErrNotFound)
	})
}

func TestSessionRepository_FindByID(t *testing.T) {
	ctx := context.Background()
	cols := []string{"id", "user_id", "created_at", "expires_at"}

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = \$1`).
			WithArgs("tok").
			WillReturnRows(pgxmock.NewRows(cols).AddRow("tok", "u1", createdAt, createdAt.Add(24*time.Hour)))

		s, err := NewSessionRepository(mock).FindByID(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, "u1", s.UserID)
		assert.Equal(t, createdAt.Add(24*time.Hour), s.ExpiresAt)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions WHERE id = \$1`).WithArgs("tok").WillReturnError(pgx.ErrNoRows)

		_, err := NewSessionRepository(mock).FindByID(ctx, "tok")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM sessions WHERE id = \$1`).WithArgs("tok").WillReturnError(errors.New("broken pipe"))

		_, err := NewSessionRepository(mock).FindByID(ctx, "tok")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken pipe")
	})
}

func TestSessionRepository_Deletes(t *testing.T) {
	ctx := context.Background()

	t.Run("delete by id is idempotent", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE id = \$1`).WithArgs("tok").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		assert.NoError(t, NewSessionRepository(mock).DeleteByID(ctx, "tok"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete all for user", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions WHERE user_id = \$1`).WithArgs("u1").
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		assert.NoError(t, NewSessionRepository(mock).DeleteAllForUser(ctx, "u1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete expired", func(t *testing.T) {
		mock := newMockPool(t)
		now := createdAt.Add(48 * time.Hour)
		mock.ExpectExec(`DELETE FROM sessions WHERE expires_at < \$1`).WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 4))

		n, err := NewSessionRepository(mock).DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("delete expired failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`DELETE FROM sessions`).WithArgs(pgxmock.AnyArg()).WillReturnError(errors.New("read only"))

		_, err := NewSessionRepository(mock).DeleteExpired(ctx, time.Now())
		assert.Error(t, err)
	})
}
