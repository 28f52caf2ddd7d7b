// Package server assembles the HTTP router and runs the listener.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/useradmin/internal/auth"
	"github.com/ayush/useradmin/internal/middleware"
	"github.com/ayush/useradmin/internal/remote"
	"github.com/ayush/useradmin/internal/users"
)

// Handlers groups everything the router mounts. Remote and Metrics are
// optional.
type Handlers struct {
	Auth    *auth.Handler
	Users   *users.Handler
	Guard   *middleware.Guard
	Remote  *remote.Handler
	Metrics http.Handler
}

// NewRouter builds the application router.
func NewRouter(h Handlers, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	// Entry pages for visitors only.
	r.Group(func(r chi.Router) {
		r.Use(h.Guard.RedirectIfAuthenticated)
		r.Get("/login", h.Users.Entry)
		r.Get("/register", h.Users.Entry)
	})

	r.Post("/register", h.Users.Register)
	r.Post("/login", h.Auth.Login)
	r.Post("/logout", h.Auth.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.Guard.RequireAuth)
		r.Get("/dashboard", h.Users.Dashboard)
		r.Get("/users", h.Users.List)
		r.Get("/profile", h.Users.Profile)
		r.Post("/profile", h.Users.UpdateProfile)
		r.Post("/delete-user", h.Users.Delete)
	})

	if h.Remote != nil {
		r.Get("/remote/{module}", h.Remote.Resolve)
	}

	return r
}
