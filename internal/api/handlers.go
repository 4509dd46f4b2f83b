package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lumera-studio/gatehouse/internal/auth"
)

// cookieSignupSession carries the signup session reference from the code
// gate to the signup callback.
const cookieSignupSession = "signup_session"

// handleBegin redirects the browser to the identity provider, threading the
// exchange mode through the state parameter.
func (h *Handlers) handleBegin(w http.ResponseWriter, r *http.Request) {
	mode := chi.URLParam(r, "mode")
	if mode != auth.ModeLogin && mode != auth.ModeSignup {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, h.provider.AuthURL(mode), http.StatusFound)
}

// handleCallback consumes the provider callback. It always resolves to a
// redirect: tokens as cookies plus a success redirect, or an error message
// in the query string. No failure here ever surfaces as a raw error page.
func (h *Handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if msg := q.Get("error"); msg != "" {
		h.redirectError(w, r, "Authentication was cancelled or failed.")
		return
	}

	mode := q.Get("state")
	code := q.Get("code")
	if code == "" {
		h.redirectError(w, r, "Authentication failed. Please try again.")
		return
	}

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("provider exchange failed", zap.Error(err))
		h.redirectError(w, r, "Authentication failed. Please try again.")
		return
	}

	res, err := h.auth.Exchange(r.Context(), auth.ExchangeInput{
		Subject:         identity.Subject,
		DisplayName:     identity.Name,
		Email:           identity.Email,
		Mode:            mode,
		SignupSessionID: cookieValue(r, cookieSignupSession),
	})
	if err != nil {
		h.logger.Warn("identity exchange rejected", zap.String("mode", mode), zap.Error(err))
		h.redirectError(w, r, exchangeMessage(err))
		return
	}

	h.cookies.Set(w, auth.CookieAccessToken, res.AccessToken)
	h.cookies.Set(w, auth.CookieRefreshToken, res.RefreshToken)
	h.cookies.Set(w, auth.CookieCSRFToken, res.CSRFToken)
	h.cookies.Clear(w, cookieSignupSession)

	dest := h.config.FrontendBaseURL + "/auth?" + url.Values{
		"authId": {res.User.ID},
		"token":  {res.CSRFToken},
	}.Encode()
	http.Redirect(w, r, dest, http.StatusFound)
}

// handleSignupCode checks the invite code and, on success, opens the
// short-lived signup session the signup callback will consume.
func (h *Handlers) handleSignupCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.signupCodes.Check(body.Code) {
		writeJSONError(w, http.StatusForbidden, "invalid signup code")
		return
	}

	sessID, err := h.auth.BeginSignupSession(r.Context())
	if err != nil {
		h.logger.Error("signup session creation failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "could not start signup")
		return
	}

	h.cookies.SetShortLived(w, cookieSignupSession, sessID, h.config.SignupSessionTTL)
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the authorized user the gate attached to the context.
func (h *Handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized. Please login again.", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck // best-effort response write
		"id":          u.ID,
		"displayName": u.DisplayName,
		"email":       u.Email,
	})
}

// redirectError sends the browser back to the login surface with a
// human-readable message, never a stack trace.
func (h *Handlers) redirectError(w http.ResponseWriter, r *http.Request, msg string) {
	dest := h.config.FrontendBaseURL + "/auth?" + url.Values{"errorMsg": {msg}}.Encode()
	http.Redirect(w, r, dest, http.StatusFound)
}

// exchangeMessage maps exchange failures to the messages surfaced on the
// redirect. Only business-state failures are named; everything else stays
// generic.
func exchangeMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrNotRegistered):
		return "Account not registered. Please sign up first."
	case errors.Is(err, auth.ErrAlreadyRegistered):
		return "Account already registered. Please log in."
	case errors.Is(err, auth.ErrSignupSessionNotFound):
		return "Signup session not found. Please enter the signup code again."
	case errors.Is(err, auth.ErrSignupSessionExpired):
		return "Signup session expired. Please enter the signup code again."
	default:
		return "Authentication failed. Please try again."
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck // best-effort response write
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
