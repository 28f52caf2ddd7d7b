package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/audit"
	"github.com/ayush/useradmin/internal/auth"
	"github.com/ayush/useradmin/internal/httpx"
	"github.com/ayush/useradmin/internal/middleware"
	"github.com/ayush/useradmin/internal/models"
)

// MsgProfileUpdated is returned after a successful profile edit.
const MsgProfileUpdated = "Profile updated"

// SessionDeleter revokes one session.
type SessionDeleter interface {
	DeleteSession(ctx context.Context, id string) error
}

// Handler serves the registration, profile, listing and deletion routes.
type Handler struct {
	users    *Service
	sessions SessionDeleter
	audit    audit.Recorder
	logger   *slog.Logger
}

// NewHandler creates the user handlers. A nil recorder disables auditing.
func NewHandler(users *Service, sessions SessionDeleter, recorder audit.Recorder, logger *slog.Logger) *Handler {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{users: users, sessions: sessions, audit: recorder, logger: logger}
}

// Entry answers the login and registration page loaders for anonymous
// visitors.
func (h *Handler) Entry(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteSuccess(w, nil, "")
}

// Register creates an account and redirects to the login page.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	values, err := httpx.FormValues(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), CreateUserInput{
		Username: values.Get("username"),
		Email:    values.Get("email"),
		Password: values.Get("password"),
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Event{
		Kind:       audit.KindRegister,
		UserID:     user.ID,
		Email:      user.Email,
		Success:    true,
		RemoteAddr: r.RemoteAddr,
	})
	httpx.Redirect(w, r, middleware.LoginPath)
}

// Dashboard returns the signed-in user and their recent activity.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())

	events, err := h.audit.Recent(r.Context(), user.ID, audit.DefaultRecentLimit)
	if err != nil {
		apperr.LogError(h.logger, "recent activity unavailable", err)
		events = []audit.Event{}
	}

	httpx.WriteSuccess(w, map[string]any{
		"user":     user,
		"activity": events,
	}, "")
}

// List returns every user alongside the caller.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	current, _ := middleware.UserFromContext(r.Context())

	all, err := h.users.GetAllUsers(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteSuccess(w, map[string]any{
		"users":       all,
		"currentUser": current,
	}, "")
}

// Profile returns the signed-in user.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	httpx.WriteSuccess(w, map[string]any{"user": user}, "")
}

// UpdateProfile applies the submitted username and/or email to the
// signed-in user.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	current, _ := middleware.UserFromContext(r.Context())

	values, err := httpx.FormValues(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	user, err := h.users.UpdateUser(r.Context(), current.ID, models.UserUpdate{
		Username: httpx.Optional(values, "username"),
		Email:    httpx.Optional(values, "email"),
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Event{
		Kind:       audit.KindProfileUpdate,
		UserID:     user.ID,
		Email:      user.Email,
		Success:    true,
		RemoteAddr: r.RemoteAddr,
	})
	httpx.WriteSuccess(w, user, MsgProfileUpdated)
}

// Delete removes the user named by the userId field. Deleting yourself
// also ends your session and sends you to the login page.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current, _ := middleware.UserFromContext(ctx)

	values, err := httpx.FormValues(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	userID := values.Get("userId")
	if userID == "" {
		httpx.WriteError(w, apperr.Validation(apperr.FieldErrors{"userId": MsgUserIDRequired}))
		return
	}

	if err := h.users.DeleteUser(ctx, userID); err != nil {
		httpx.WriteError(w, err)
		return
	}

	h.audit.Record(ctx, audit.Event{
		Kind:       audit.KindUserDeleted,
		UserID:     userID,
		ActorID:    current.ID,
		Success:    true,
		RemoteAddr: r.RemoteAddr,
	})

	if userID != current.ID {
		httpx.Redirect(w, r, "/users")
		return
	}

	if session, ok := middleware.SessionFromContext(ctx); ok {
		if err := h.sessions.DeleteSession(ctx, session.ID); err != nil {
			h.logger.Warn("could not delete own session after self-deletion", "error", err)
		}
	}
	http.SetCookie(w, auth.ClearSessionCookie())
	httpx.Redirect(w, r, middleware.LoginPath)
}
