package httpx_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/useradmin/internal/apperr"
	"github.com/ayush/useradmin/internal/httpx"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteSuccess(rec, map[string]string{"id": "u1"}, "Profile updated")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Profile updated", body["message"])
	assert.Equal(t, map[string]any{"id": "u1"}, body["data"])
	assert.NotContains(t, body, "errors")
}

func TestWriteSuccess_OmitsEmptyFields(t *testing.T) {
	rec := httptest.NewRecorder()
	httpx.WriteSuccess(rec, nil, "")

	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		errors map[string]any
	}{
		{
			name:   "validation",
			err:    apperr.Validation(apperr.FieldErrors{"email": "bad"}),
			status: http.StatusBadRequest,
			errors: map[string]any{"email": "bad"},
		},
		{
			name:   "credentials",
			err:    apperr.InvalidCredentials(),
			status: http.StatusUnauthorized,
			errors: map[string]any{"general": apperr.MsgInvalidCredentials},
		},
		{
			name:   "conflict",
			err:    apperr.Conflict("email", apperr.MsgEmailTaken),
			status: http.StatusConflict,
			errors: map[string]any{"email": apperr.MsgEmailTaken},
		},
		{
			name:   "not found",
			err:    apperr.NotFound(apperr.MsgUserNotFound),
			status: http.StatusNotFound,
			errors: map[string]any{"general": apperr.MsgUserNotFound},
		},
		{
			name:   "unexpected error hides detail",
			err:    errors.New("pq: connection refused"),
			status: http.StatusInternalServerError,
			errors: map[string]any{"general": apperr.MsgStorage},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			httpx.WriteError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.errors, body["errors"])
			assert.NotContains(t, rec.Body.String(), "connection refused")
		})
	}
}

func TestRedirect(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/register", nil)
	httpx.Redirect(rec, req, "/login")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestFormValues(t *testing.T) {
	t.Run("urlencoded", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=a%40b.co&password=secret123"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		values, err := httpx.FormValues(req)
		require.NoError(t, err)
		assert.Equal(t, "a@b.co", values.Get("email"))
		assert.Equal(t, "secret123", values.Get("password"))
	})

	t.Run("json object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.co","password":"secret123"}`))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")

		values, err := httpx.FormValues(req)
		require.NoError(t, err)
		assert.Equal(t, "a@b.co", values.Get("email"))
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":`))
		req.Header.Set("Content-Type", "application/json")

		_, err := httpx.FormValues(req)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeValidation))
		assert.Equal(t, httpx.MsgInvalidBody, apperr.Fields(err)[apperr.GeneralField])
	})

	t.Run("json with non-string values", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":42}`))
		req.Header.Set("Content-Type", "application/json")

		_, err := httpx.FormValues(req)
		assert.True(t, apperr.Is(err, apperr.CodeValidation))
	})
}

func TestOptional(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/profile", strings.NewReader("username=&other=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	values, err := httpx.FormValues(req)
	require.NoError(t, err)

	username := httpx.Optional(values, "username")
	require.NotNil(t, username)
	assert.Equal(t, "", *username)
	assert.Nil(t, httpx.Optional(values, "email"))
}
