package auth_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/auth"
	"github.com/ayush/useradmin/internal/models"
	"github.com/ayush/useradmin/internal/store/memory"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newSessionFixture(t *testing.T) (*auth.SessionService, *memory.Store, *fakeClock) {
	t.Helper()
	store := memory.New()
	_, err := store.Users().Create(context.Background(), &models.UserWithSecret{
		User:         models.User{ID: "u1", Username: "alice", Email: "alice@example.com"},
		PasswordHash: "x",
	})
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
	svc := auth.NewSessionService(store.Sessions(), slog.New(slog.DiscardHandler), auth.WithClock(clock.Now))
	return svc, store, clock
}

func TestGenerateSessionToken(t *testing.T) {
	a, err := auth.GenerateSessionToken()
	require.NoError(t, err)
	b, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	assert.Len(t, a, auth.SessionTokenBytes*2)
	_, err = hex.DecodeString(a)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSessionService_CreateSession(t *testing.T) {
	svc, _, clock := newSessionFixture(t)

	s, err := svc.CreateSession(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)
	assert.Equal(t, clock.Now(), s.CreatedAt)
	assert.Equal(t, clock.Now().Add(24*time.Hour), s.ExpiresAt)
	assert.True(t, s.ExpiresAt.After(s.CreatedAt))
	assert.Len(t, s.ID, 64)
}

func TestSessionService_GetSession_Expiry(t *testing.T) {
	ctx := context.Background()
	svc, store, clock := newSessionFixture(t)

	created, err := svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	clock.Advance(23*time.Hour + 59*time.Minute)
	got, err := svc.GetSession(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.ID, got.ID)

	clock.Advance(2 * time.Minute)
	got, err = svc.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = store.Sessions().FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "expired session is purged on read")

	got, err = svc.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionService_GetSession_Unknown(t *testing.T) {
	svc, _, _ := newSessionFixture(t)

	got, err := svc.GetSession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = svc.GetSession(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionService_GetSession_StorageFailure(t *testing.T) {
	repo := &mockSessionRepo{}
	repo.On("FindByID", mock.Anything, "tok").Return(nil, errors.New("timeout"))
	svc := auth.NewSessionService(repo, slog.New(slog.DiscardHandler))

	_, err := svc.GetSession(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStorage, apperr.Code(err))
}

func TestSessionService_GetSession_ReapFailureIsLogged(t *testing.T) {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	repo := &mockSessionRepo{}
	repo.On("FindByID", mock.Anything, "tok").Return(&models.Session{
		ID: "tok", UserID: "u1", ExpiresAt: now.Add(-time.Second),
	}, nil)
	repo.On("DeleteByID", mock.Anything, "tok").Return(errors.New("deadlock"))

	var buf bytes.Buffer
	svc := auth.NewSessionService(repo, slog.New(slog.NewTextHandler(&buf, nil)),
		auth.WithClock(func() time.Time { return now }))

	got, err := svc.GetSession(context.Background(), "tok")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Contains(t, buf.String(), "deadlock")
	repo.AssertExpectations(t)
}

func TestSessionService_ConcurrentReapIsHarmless(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newSessionFixture(t)
	created, err := svc.CreateSession(ctx, "u1")
	require.NoError(t, err)
	clock.Advance(25 * time.Hour)

	// Both readers observe the expired row; the second delete finds nothing.
	for range 2 {
		got, err := svc.GetSession(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	require.NoError(t, svc.DeleteSession(ctx, created.ID))
}

func TestSessionService_DeleteAllSessionsForUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSessionFixture(t)
	a, err := svc.CreateSession(ctx, "u1")
	require.NoError(t, err)
	b, err := svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAllSessionsForUser(ctx, "u1"))

	for _, id := range []string{a.ID, b.ID} {
		got, err := svc.GetSession(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
}

func TestSessionService_PruneExpired(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newSessionFixture(t)
	_, err := svc.CreateSession(ctx, "u1")
	require.NoError(t, err)
	clock.Advance(12 * time.Hour)
	live, err := svc.CreateSession(ctx, "u1")
	require.NoError(t, err)
	clock.Advance(13 * time.Hour)

	n, err := svc.PruneExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.GetSession(ctx, live.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSessionService_ResolveFromCookieHeader(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newSessionFixture(t)
	created, err := svc.CreateSession(ctx, "u1")
	require.NoError(t, err)

	got, err := svc.ResolveFromCookieHeader(ctx, "theme=dark; sessionId="+created.ID+"; lang=en")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	got, err = svc.ResolveFromCookieHeader(ctx, "theme=dark")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTokenFromCookieHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"sessionId=abc", "abc"},
		{"a=1; sessionId=abc; b=2", "abc"},
		{"a=1;sessionId=abc", "abc"},
		{`sessionId="abc"`, "abc"},
		{"xsessionId=abc", ""},
		{"sessionId", ""},
		{"sessionId=", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.TokenFromCookieHeader(tt.header))
		})
	}
}

func TestSessionCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	http.SetCookie(rec, auth.NewSessionCookie("tok"))
	header := rec.Header().Get("Set-Cookie")
	assert.Contains(t, header, "sessionId=tok")
	assert.Contains(t, header, "Path=/")
	assert.Contains(t, header, "Max-Age=86400")
	assert.Contains(t, header, "HttpOnly")
	assert.Contains(t, header, "SameSite=Lax")

	rec = httptest.NewRecorder()
	http.SetCookie(rec, auth.ClearSessionCookie())
	header = rec.Header().Get("Set-Cookie")
	assert.Contains(t, header, "sessionId=;")
	assert.Contains(t, header, "Max-Age=0")
}
