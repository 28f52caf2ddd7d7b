// Package memory provides in-process user and session repositories. Deleting
// a user removes its sessions, matching the ON DELETE CASCADE of the
// Postgres schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ayush/useradmin/internal/models"
)

type state struct {
	mu       sync.RWMutex
	users    map[string]models.UserWithSecret
	sessions map[string]models.Session
	now      func() time.Time
}

// checkUnique reports a duplicate email or username held by a user other
// than exceptID. Callers hold mu.
func (st *state) checkUnique(exceptID string, email, username *string) error {
	for id, u := range st.users {
		if id != exceptID && email != nil && u.Email == *email {
			return models.ErrDuplicateEmail
		}
	}
	for id, u := range st.users {
		if id != exceptID && username != nil && u.Username == *username {
			return models.ErrDuplicateUsername
		}
	}
	return nil
}

// Store owns the shared state behind Users and Sessions.
type Store struct {
	st       *state
	users    *UserRepository
	sessions *SessionRepository
}

// New creates an empty store.
func New() *Store {
	st := &state{
		users:    make(map[string]models.UserWithSecret),
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
	return &Store{
		st:       st,
		users:    &UserRepository{st: st},
		sessions: &SessionRepository{st: st},
	}
}

// Users returns the user repository.
func (s *Store) Users() *UserRepository { return s.users }

// Sessions returns the session repository.
func (s *Store) Sessions() *SessionRepository { return s.sessions }

// UserRepository stores users in memory.
type UserRepository struct {
	st *state
}

// Create inserts u, enforcing unique email and username.
func (r *UserRepository) Create(_ context.Context, u *models.UserWithSecret) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if err := r.st.checkUnique("", &u.Email, &u.Username); err != nil {
		return nil, err
	}

	row := *u
	now := r.st.now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	r.st.users[row.ID] = row

	out := row.User
	return &out, nil
}

// FindByID returns the user with id.
func (r *UserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	row, ok := r.st.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := row.User
	return &out, nil
}

// FindByEmail returns the user with email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row, err := r.FindByEmailWithSecret(ctx, email)
	if err != nil {
		return nil, err
	}
	out := row.User
	return &out, nil
}

// FindByEmailWithSecret returns the user with email including its hash.
func (r *UserRepository) FindByEmailWithSecret(_ context.Context, email string) (*models.UserWithSecret, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	for _, row := range r.st.users {
		if row.Email == email {
			out := row
			return &out, nil
		}
	}
	return nil, models.ErrNotFound
}

// FindAll returns every user ordered by creation time.
func (r *UserRepository) FindAll(_ context.Context) ([]models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	out := make([]models.User, 0, len(r.st.users))
	for _, row := range r.st.users {
		out = append(out, row.User)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update applies the non-nil fields of upd.
func (r *UserRepository) Update(_ context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	row, ok := r.st.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if err := r.st.checkUnique(id, upd.Email, upd.Username); err != nil {
		return nil, err
	}

	if upd.Username != nil {
		row.Username = *upd.Username
	}
	if upd.Email != nil {
		row.Email = *upd.Email
	}
	row.UpdatedAt = r.st.now().UTC()
	r.st.users[id] = row

	out := row.User
	return &out, nil
}

// Delete removes the user and every session it owns.
func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.users[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.st.users, id)
	for sid, s := range r.st.sessions {
		if s.UserID == id {
			delete(r.st.sessions, sid)
		}
	}
	return nil
}

// SessionRepository stores sessions in memory.
type SessionRepository struct {
	st *state
}

// Create stores s. The owning user must exist.
func (r *SessionRepository) Create(_ context.Context, s *models.Session) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.users[s.UserID]; !ok {
		return models.ErrNotFound
	}
	r.st.sessions[s.ID] = *s
	return nil
}

// FindByID returns the session with id, expired or not.
func (r *SessionRepository) FindByID(_ context.Context, id string) (*models.Session, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	s, ok := r.st.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

// DeleteByID removes the session. Missing sessions are ignored.
func (r *SessionRepository) DeleteByID(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	delete(r.st.sessions, id)
	return nil
}

// DeleteAllForUser removes every session owned by userID.
func (r *SessionRepository) DeleteAllForUser(_ context.Context, userID string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for id, s := range r.st.sessions {
		if s.UserID == userID {
			delete(r.st.sessions, id)
		}
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is before now.
func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var n int64
	for id, s := range r.st.sessions {
		if s.IsExpiredAt(now) {
			delete(r.st.sessions, id)
			n++
		}
	}
	return n, nil
}
