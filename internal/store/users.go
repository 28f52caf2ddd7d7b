package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/ayush/useradmin/internal/models"
)

// Unique constraint names from the users migration.
const (
	usersEmailKey    = "users_email_key"
	usersUsernameKey = "users_username_key"
)

const userColumns = `id, username, email, created_at, updated_at`

// UserRepository handles user CRUD against PostgreSQL.
type UserRepository struct {
	db Querier
}

// NewUserRepository creates a user repository.
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func duplicateErr(err error) error {
	constraint, ok := uniqueConstraint(err)
	if !ok {
		return nil
	}
	switch constraint {
	case usersEmailKey:
		return models.ErrDuplicateEmail
	case usersUsernameKey:
		return models.ErrDuplicateUsername
	}
	return nil
}

// Create inserts u and returns the stored row.
func (r *UserRepository) Create(ctx context.Context, u *models.UserWithSecret) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING `+userColumns,
		u.ID, u.Username, u.Email, u.PasswordHash,
	))
	if err != nil {
		if dup := duplicateErr(err); dup != nil {
			return nil, dup
		}
		return nil, oops.With("operation", "create user").With("user_id", u.ID).Wrap(err)
	}
	return user, nil
}

// FindByID returns the user with id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "find user by id").With("user_id", id).Wrap(err)
	}
	return user, nil
}

// FindByEmail returns the user with email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "find user by email").Wrap(err)
	}
	return user, nil
}

// FindByEmailWithSecret returns the user with email including its
// password hash.
func (r *UserRepository) FindByEmailWithSecret(ctx context.Context, email string) (*models.UserWithSecret, error) {
	var u models.UserWithSecret
	err := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, oops.With("operation", "find credentials by email").Wrap(err)
	}
	return &u, nil
}

// FindAll returns every user, oldest first.
func (r *UserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, oops.With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, oops.With("operation", "scan user row").Wrap(err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}

// Update applies the non-nil fields of upd and bumps updated_at.
func (r *UserRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx,
		`UPDATE users
		 SET username = COALESCE($2, username),
		     email = COALESCE($3, email),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, upd.Username, upd.Email,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		if dup := duplicateErr(err); dup != nil {
			return nil, dup
		}
		return nil, oops.With("operation", "update user").With("user_id", id).Wrap(err)
	}
	return user, nil
}

// Delete removes the user. Its sessions go with it through the foreign
// key cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return oops.With("operation", "delete user").With("user_id", id).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
