package auth

import (
	"net/http"
	"time"
)

// Cookie and header names of the token transport.
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
	CookieCSRFToken    = "csrf_token"
	HeaderCSRF         = "X-CSRF-Token"
)

// CookieWriter writes the core's cookies with a fixed attribute set:
// httpOnly, SameSite=Lax, path "/", and Secure outside development.
//
// MaxAge is deliberately long (default one year) and decoupled from the
// tokens' own cryptographic expiry: an expired-but-present cookie is what
// lets the gate's refresh branches run at all. The token expiry, not the
// cookie lifetime, is the credential lifetime.
type CookieWriter struct {
	Secure bool
	MaxAge time.Duration
}

// NewCookieWriter returns a writer. A zero maxAge selects the one-year
// default.
func NewCookieWriter(secure bool, maxAge time.Duration) *CookieWriter {
	if maxAge == 0 {
		maxAge = 365 * 24 * time.Hour
	}
	return &CookieWriter{Secure: secure, MaxAge: maxAge}
}

// Set writes one token cookie.
func (c *CookieWriter) Set(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetShortLived writes a cookie whose lifetime tracks ttl, used for the
// signup session reference.
func (c *CookieWriter) SetShortLived(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the named cookie.
func (c *CookieWriter) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
