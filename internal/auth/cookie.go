package auth

import (
	"net/http"
	"time"
)

// SessionCookieName carries the session token.
const SessionCookieName = "sessionId"

// NewSessionCookie builds the cookie issued on login.
func NewSessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	}
}

// ClearSessionCookie builds a cookie that expires the session cookie
// immediately (Max-Age=0 on the wire).
func ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	}
}
