// Package users implements registration, profile edits, listing and
// deletion of user accounts.
package users

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/metrics"
	"github.com/ayush/useradmin/internal/models"
)

// Repository persists users. Reads never expose the password hash.
type Repository interface {
	Create(ctx context.Context, u *models.UserWithSecret) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// Hasher hashes new passwords.
type Hasher interface {
	Hash(password string) (string, error)
}

// SessionRevoker drops every session a user owns.
type SessionRevoker interface {
	DeleteAllSessionsForUser(ctx context.Context, userID string) error
}

// CreateUserInput is a registration request.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
}

// Service orchestrates user lifecycle operations.
type Service struct {
	repo     Repository
	hasher   Hasher
	sessions SessionRevoker
	logger   *slog.Logger
	newID    func() string
}

// NewService creates a user service.
func NewService(repo Repository, hasher Hasher, sessions SessionRevoker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		hasher:   hasher,
		sessions: sessions,
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// CreateUser validates in, checks the email is free, hashes the password
// and stores the new user.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if errs := ValidateRegistration(in); errs != nil {
		metrics.RecordUserOperation("create", metrics.ResultFailure)
		return nil, apperr.Validation(errs)
	}

	_, err := s.repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		metrics.RecordUserOperation("create", metrics.ResultFailure)
		return nil, apperr.Conflict("email", apperr.MsgEmailTaken)
	case !errors.Is(err, models.ErrNotFound):
		metrics.RecordUserOperation("create", metrics.ResultError)
		return nil, apperr.Storage(s.logger, "find user by email", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		metrics.RecordUserOperation("create", metrics.ResultError)
		return nil, apperr.Storage(s.logger, "hash password", err)
	}

	user, err := s.repo.Create(ctx, &models.UserWithSecret{
		User: models.User{
			ID:       s.newID(),
			Username: in.Username,
			Email:    in.Email,
		},
		PasswordHash: hash,
	})
	if err != nil {
		// The pre-check is best effort; the unique constraint decides races.
		if conflict := conflictFor(err); conflict != nil {
			metrics.RecordUserOperation("create", metrics.ResultFailure)
			return nil, conflict
		}
		metrics.RecordUserOperation("create", metrics.ResultError)
		return nil, apperr.Storage(s.logger, "create user", err)
	}

	metrics.RecordUserOperation("create", metrics.ResultSuccess)
	s.logger.Info("user created", "user_id", user.ID)
	return user, nil
}

// UpdateUser applies a partial profile update. Only submitted fields are
// validated; a changed email must not belong to another user.
func (s *Service) UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if errs := ValidateProfileUpdate(upd); errs != nil {
		metrics.RecordUserOperation("update", metrics.ResultFailure)
		return nil, apperr.Validation(errs)
	}

	existing, err := s.GetUserByID(ctx, id)
	if err != nil {
		metrics.RecordUserOperation("update", metrics.ResultFailure)
		return nil, err
	}
	if upd.IsEmpty() {
		return existing, nil
	}

	if upd.Email != nil && *upd.Email != existing.Email {
		owner, err := s.repo.FindByEmail(ctx, *upd.Email)
		switch {
		case err == nil && owner.ID != id:
			metrics.RecordUserOperation("update", metrics.ResultFailure)
			return nil, apperr.Conflict("email", apperr.MsgEmailTaken)
		case err != nil && !errors.Is(err, models.ErrNotFound):
			metrics.RecordUserOperation("update", metrics.ResultError)
			return nil, apperr.Storage(s.logger, "find user by email", err)
		}
	}

	user, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.RecordUserOperation("update", metrics.ResultFailure)
			return nil, apperr.NotFound(apperr.MsgUserNotFound)
		}
		if conflict := conflictFor(err); conflict != nil {
			metrics.RecordUserOperation("update", metrics.ResultFailure)
			return nil, conflict
		}
		metrics.RecordUserOperation("update", metrics.ResultError)
		return nil, apperr.Storage(s.logger, "update user", err)
	}

	metrics.RecordUserOperation("update", metrics.ResultSuccess)
	return user, nil
}

// DeleteUser removes the user and then revokes its sessions. A failed
// revocation is logged only: the orphaned sessions resolve to no user and
// expire on their own.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	switch {
	case errors.Is(err, models.ErrNotFound):
		metrics.RecordUserOperation("delete", metrics.ResultFailure)
		return apperr.NotFound(apperr.MsgUserNotFound)
	case err != nil:
		metrics.RecordUserOperation("delete", metrics.ResultError)
		return apperr.Storage(s.logger, "delete user", err)
	}

	if err := s.sessions.DeleteAllSessionsForUser(ctx, id); err != nil {
		s.logger.Warn("sessions not revoked after user deletion", "user_id", id, "error", err)
	}

	metrics.RecordUserOperation("delete", metrics.ResultSuccess)
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// GetAllUsers lists every user.
func (s *Service) GetAllUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, apperr.Storage(s.logger, "list users", err)
	}
	return users, nil
}

// GetUserByID returns the user with id.
func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound(apperr.MsgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Storage(s.logger, "find user by id", err)
	}
	return user, nil
}

// GetUserByEmail returns the user with email.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, apperr.NotFound(apperr.MsgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Storage(s.logger, "find user by email", err)
	}
	return user, nil
}

func conflictFor(err error) error {
	switch {
	case errors.Is(err, models.ErrDuplicateEmail):
		return apperr.Conflict("email", apperr.MsgEmailTaken)
	case errors.Is(err, models.ErrDuplicateUsername):
		return apperr.Conflict("username", apperr.MsgUsernameTaken)
	}
	return nil
}
