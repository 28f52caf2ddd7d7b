package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ayush/useradmin/internal/audit"
	"github.com/ayush/useradmin/internal/httpx"
	"github.com/ayush/useradmin/internal/models"
)

// Authenticator verifies an email/password pair.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
}

// Handler holds login and logout HTTP handlers.
type Handler struct {
	auth     Authenticator
	sessions *SessionService
	audit    audit.Recorder
	logger   *slog.Logger
}

// NewHandler creates the auth handlers. A nil recorder disables auditing.
func NewHandler(authn Authenticator, sessions *SessionService, recorder audit.Recorder, logger *slog.Logger) *Handler {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{auth: authn, sessions: sessions, audit: recorder, logger: logger}
}

// Login authenticates the submitted credentials, issues a session cookie
// and redirects to the dashboard.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	values, err := httpx.FormValues(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	email := values.Get("email")

	user, err := h.auth.Login(r.Context(), email, values.Get("password"))
	if err != nil {
		h.audit.Record(r.Context(), audit.Event{
			Kind:       audit.KindLoginFailed,
			Email:      email,
			RemoteAddr: r.RemoteAddr,
		})
		httpx.WriteError(w, err)
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), user.ID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Event{
		Kind:       audit.KindLogin,
		UserID:     user.ID,
		Email:      user.Email,
		Success:    true,
		RemoteAddr: r.RemoteAddr,
	})
	h.logger.Info("user logged in", "user_id", user.ID)

	http.SetCookie(w, NewSessionCookie(session.ID))
	httpx.Redirect(w, r, "/dashboard")
}

// Logout destroys the session named by the cookie, if any, clears the
// cookie and redirects to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if token := TokenFromCookieHeader(r.Header.Get("Cookie")); token != "" {
		session, err := h.sessions.GetSession(ctx, token)
		if err == nil && session != nil {
			h.audit.Record(ctx, audit.Event{
				Kind:       audit.KindLogout,
				UserID:     session.UserID,
				Success:    true,
				RemoteAddr: r.RemoteAddr,
			})
		}
		if err := h.sessions.DeleteSession(ctx, token); err != nil {
			// The cookie is cleared regardless; the row expires on its own.
			h.logger.Warn("logout could not delete session", "error", err)
		}
	}

	http.SetCookie(w, ClearSessionCookie())
	httpx.Redirect(w, r, "/login")
}
