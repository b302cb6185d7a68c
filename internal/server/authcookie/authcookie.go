// Package authcookie centralizes access token cookie behavior.
package authcookie

import (
	"net/http"
	"strings"
	"time"
)

// Name is the canonical access token cookie name.
const Name = "jwt"

// MaxAge bounds how long the browser keeps the cookie. It matches the refresh
// session lifetime, not the access token TTL, so a stale-but-authentic token
// stays available for the silent refresh flow.
const MaxAge = 7 * 24 * time.Hour

// Read returns the trimmed access token cookie value when present.
func Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// Write sets the access token cookie. secure should be true whenever the
// deployment terminates TLS (production).
func Write(w http.ResponseWriter, token string, secure bool) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    strings.TrimSpace(token),
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(MaxAge / time.Second),
	})
}

// Clear expires the access token cookie.
func Clear(w http.ResponseWriter, secure bool) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
