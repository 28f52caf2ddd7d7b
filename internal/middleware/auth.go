// Package middleware resolves the session cookie on each request and gates
// routes on whether a user is signed in.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/models"
)

// Redirect targets.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// SessionResolver turns a raw Cookie header into a live session.
type SessionResolver interface {
	ResolveFromCookieHeader(ctx context.Context, header string) (*models.Session, error)
}

// UserLookup finds the owner of a session.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type ctxKey int

const (
	userKey ctxKey = iota
	sessionKey
	resolvedKey
)

// Guard resolves cookie -> session -> user.
type Guard struct {
	sessions SessionResolver
	users    UserLookup
	logger   *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(sessions SessionResolver, users UserLookup, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{sessions: sessions, users: users, logger: logger}
}

// CurrentUser returns the signed-in user, or nil. Missing cookies, unknown
// or expired sessions, deleted users and lookup failures all yield nil.
func (g *Guard) CurrentUser(r *http.Request) *models.User {
	user, _ := g.resolve(r)
	return user
}

func (g *Guard) resolve(r *http.Request) (*models.User, *models.Session) {
	ctx := r.Context()
	if ctx.Value(resolvedKey) != nil {
		user, _ := UserFromContext(ctx)
		session, _ := SessionFromContext(ctx)
		return user, session
	}

	header := r.Header.Get("Cookie")
	if header == "" {
		return nil, nil
	}

	session, err := g.sessions.ResolveFromCookieHeader(ctx, header)
	if err != nil {
		g.logger.Warn("session lookup failed", "error", err)
		return nil, nil
	}
	if session == nil {
		return nil, nil
	}

	user, err := g.users.GetUserByID(ctx, session.UserID)
	if err != nil {
		if !apperr.Is(err, apperr.CodeNotFound) {
			g.logger.Warn("session user lookup failed", "user_id", session.UserID, "error", err)
		}
		return nil, nil
	}
	return user, session
}

// Authenticate resolves the current user once and stores it, with its
// session, in the request context. Requests without a user pass through.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if user, session := g.resolve(r); user != nil {
			ctx = WithUser(ctx, user, session)
		} else {
			ctx = context.WithValue(ctx, resolvedKey, true)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth ends the request with a redirect to the login page when no
// user is signed in.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return g.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RedirectIfAuthenticated sends signed-in users to the dashboard. Used on
// the login and registration pages.
func (g *Guard) RedirectIfAuthenticated(next http.Handler) http.Handler {
	return g.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); ok {
			http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// UserFromContext returns the user stored by Authenticate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// SessionFromContext returns the session stored by Authenticate.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(sessionKey).(*models.Session)
	return session, ok && session != nil
}

// WithUser returns a copy of ctx carrying the resolved user and session.
func WithUser(ctx context.Context, user *models.User, session *models.Session) context.Context {
	ctx = context.WithValue(ctx, resolvedKey, true)
	ctx = context.WithValue(ctx, userKey, user)
	return context.WithValue(ctx, sessionKey, session)
}
