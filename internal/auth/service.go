package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/metrics"
	"github.com/ayush/useradmin/internal/models"
)

// CredentialStore is the only user lookup that exposes password hashes.
type CredentialStore interface {
	FindByEmailWithSecret(ctx context.Context, email string) (*models.UserWithSecret, error)
}

// Service verifies credentials.
type Service struct {
	users     CredentialStore
	hasher    PasswordHasher
	logger    *slog.Logger
	dummyHash string
}

// NewService creates an authentication service. A throwaway hash is
// computed up front so lookups for unknown emails still pay for one
// verification.
func NewService(users CredentialStore, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := hasher.Hash("useradmin-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Service{users: users, hasher: hasher, logger: logger, dummyHash: dummy}, nil
}

// Login returns the user owning email when password matches. Unknown
// emails and wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, lookupErr := s.users.FindByEmailWithSecret(ctx, email)

	var targetHash string
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case errors.Is(lookupErr, models.ErrNotFound):
		targetHash = s.dummyHash
	default:
		metrics.RecordLogin(metrics.ResultError)
		return nil, apperr.Storage(s.logger, "find user by email", lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		apperr.LogError(s.logger, "password verification failed", verifyErr)
		valid = false
	}

	if lookupErr != nil || !valid {
		metrics.RecordLogin(metrics.ResultFailure)
		return nil, apperr.InvalidCredentials()
	}

	metrics.RecordLogin(metrics.ResultSuccess)
	u := user.User
	return &u, nil
}
