package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/metrics"
	"github.com/ayush/useradmin/internal/models"
)

// Session token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 64 hex chars
	SessionTTL        = 24 * time.Hour // 24 hour expiry
)

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session.
	Create(ctx context.Context, session *models.Session) error

	// FindByID retrieves a session by its token. Returns models.ErrNotFound
	// when absent.
	FindByID(ctx context.Context, id string) (*models.Session, error)

	// DeleteByID removes a session. Deleting an absent session succeeds.
	DeleteByID(ctx context.Context, id string) error

	// DeleteAllForUser removes every session owned by userID.
	DeleteAllForUser(ctx context.Context, userID string) error

	// DeleteExpired removes sessions that expired before now and returns
	// the number removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionService issues, resolves and revokes sessions.
type SessionService struct {
	repo   SessionRepository
	logger *slog.Logger
	now    func() time.Time
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// NewSessionService creates a SessionService.
func NewSessionService(repo SessionRepository, logger *slog.Logger, opts ...SessionOption) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionService{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateSessionToken returns a hex-encoded token drawn from crypto/rand.
func GenerateSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(b), nil
}

// CreateSession issues a new 24 hour session for userID.
func (s *SessionService) CreateSession(ctx context.Context, userID string) (*models.Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, apperr.Storage(s.logger, "generate session token", err)
	}

	now := s.now()
	session := &models.Session{
		ID:        token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, apperr.Storage(s.logger, "create session", err)
	}

	metrics.RecordSessionCreated()
	return session, nil
}

// GetSession returns the session for token, or nil when it does not exist
// or has expired. Expired sessions are deleted as a side effect.
func (s *SessionService) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.repo.FindByID(ctx, token)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(s.logger, "find session", err)
	}

	if session.IsExpiredAt(s.now()) {
		// Concurrent readers may race here; DeleteByID tolerates absence.
		if err := s.repo.DeleteByID(ctx, session.ID); err != nil {
			apperr.LogError(s.logger, "delete expired session", err)
		} else {
			metrics.RecordSessionsReaped("read", 1)
		}
		return nil, nil
	}

	return session, nil
}

// DeleteSession revokes a single session. Absent sessions are not an error.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return apperr.Storage(s.logger, "delete session", err)
	}
	return nil
}

// DeleteAllSessionsForUser revokes every session owned by userID.
func (s *SessionService) DeleteAllSessionsForUser(ctx context.Context, userID string) error {
	if err := s.repo.DeleteAllForUser(ctx, userID); err != nil {
		return apperr.Storage(s.logger, "delete user sessions", err)
	}
	return nil
}

// ResolveFromCookieHeader extracts the session token from a raw Cookie
// header and resolves it with GetSession.
func (s *SessionService) ResolveFromCookieHeader(ctx context.Context, header string) (*models.Session, error) {
	token := TokenFromCookieHeader(header)
	if token == "" {
		return nil, nil
	}
	return s.GetSession(ctx, token)
}

// PruneExpired deletes every expired session and returns how many went.
func (s *SessionService) PruneExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, apperr.Storage(s.logger, "prune expired sessions", err)
	}
	metrics.RecordSessionsReaped("prune", n)
	return n, nil
}

// TokenFromCookieHeader returns the sessionId value from a semicolon
// delimited Cookie header, or "" when absent.
func TokenFromCookieHeader(header string) string {
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == SessionCookieName {
			return strings.Trim(value, `"`)
		}
	}
	return ""
}
