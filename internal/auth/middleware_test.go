package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		require.True(t, ok, "guard must attach the user")
		w.Write([]byte(u.ID))
	})
}

func requestWith(creds Credentials) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/admin/events", nil)
	if creds.AccessToken != "" {
		r.AddCookie(&http.Cookie{Name: CookieAccessToken, Value: creds.AccessToken})
	}
	if creds.RefreshToken != "" {
		r.AddCookie(&http.Cookie{Name: CookieRefreshToken, Value: creds.RefreshToken})
	}
	if creds.CSRFCookie != "" {
		r.AddCookie(&http.Cookie{Name: CookieCSRFToken, Value: creds.CSRFCookie})
	}
	if creds.CSRFHeader != "" {
		r.Header.Set(HeaderCSRF, creds.CSRFHeader)
	}
	return r
}

func TestGuardPassesValidRequest(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "sub-1")
	rec, refreshTok := f.seedRefresh(t, u.ID, 7*24*time.Hour)

	handler := Guard(f.svc, NewCookieWriter(false, 0))(protectedEcho(t))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWith(f.credsFor(t, u.ID, rec.ID, 15*time.Minute, refreshTok)))

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, u.ID, w.Body.String())
	require.Empty(t, w.Result().Cookies(), "a fully valid pair must not set cookies")
}

func TestGuardRejectsUniformly(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "sub-1")
	rec, refreshTok := f.seedRefresh(t, u.ID, 7*24*time.Hour)
	handler := Guard(f.svc, NewCookieWriter(false, 0))(protectedEcho(t))

	full := f.credsFor(t, u.ID, rec.ID, 15*time.Minute, refreshTok)
	cases := map[string]Credentials{
		"missing csrf header": {AccessToken: full.AccessToken, RefreshToken: full.RefreshToken, CSRFCookie: full.CSRFCookie},
		"missing csrf cookie": {AccessToken: full.AccessToken, RefreshToken: full.RefreshToken, CSRFHeader: full.CSRFHeader},
		"missing access":      {RefreshToken: full.RefreshToken, CSRFCookie: full.CSRFCookie, CSRFHeader: full.CSRFHeader},
	}
	for name, creds := range cases {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestWith(creds))
		require.Equal(t, http.StatusUnauthorized, w.Code, name)
		require.Equal(t, "Unauthorized. Please login again.", strings.TrimSpace(w.Body.String()), name)
	}
}

func TestGuardSetsReissuedAccessCookie(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "sub-1")
	rec, refreshTok := f.seedRefresh(t, u.ID, 7*24*time.Hour)
	handler := Guard(f.svc, NewCookieWriter(false, 0))(protectedEcho(t))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWith(f.credsFor(t, u.ID, rec.ID, -time.Second, refreshTok)))

	require.Equal(t, http.StatusOK, w.Code)

	var accessCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		switch c.Name {
		case CookieAccessToken:
			accessCookie = c
		case CookieRefreshToken:
			t.Fatal("refresh cookie must stay untouched on the access-only path")
		}
	}
	require.NotNil(t, accessCookie, "expected a fresh access cookie")
	require.True(t, accessCookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, accessCookie.SameSite)
	require.Equal(t, "/", accessCookie.Path)
}

func TestGuardIdentityComesFromToken(t *testing.T) {
	f := newFixture(t)
	attacker := f.seedUser(t, "sub-attacker")
	victim := f.seedUser(t, "sub-victim")
	rec, refreshTok := f.seedRefresh(t, attacker.ID, 7*24*time.Hour)
	handler := Guard(f.svc, NewCookieWriter(false, 0))(protectedEcho(t))

	// The request body/query may claim any identity it likes; the resolved
	// user is taken from the verified token alone.
	r := requestWith(f.credsFor(t, attacker.ID, rec.ID, 15*time.Minute, refreshTok))
	q := r.URL.Query()
	q.Set("userId", victim.ID)
	r.URL.RawQuery = q.Encode()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, attacker.ID, w.Body.String())
	require.NotEqual(t, victim.ID, w.Body.String())
}
