// Package api mounts the HTTP surface of the authentication core: the
// provider round trip, the signup-code gate, and the protected routes
// behind the request gate.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lumera-studio/gatehouse/internal/auth"
	"github.com/lumera-studio/gatehouse/internal/provider"
)

// Config carries the routing-level settings.
type Config struct {
	// FrontendBaseURL is where exchange outcomes are redirected,
	// e.g. "https://admin.example.com".
	FrontendBaseURL string
	// SignupSessionTTL bounds the signup_session cookie lifetime.
	SignupSessionTTL time.Duration
}

// Handlers owns the route implementations.
type Handlers struct {
	config      Config
	auth        *auth.Service
	provider    provider.Provider
	signupCodes *provider.SignupCodeChecker
	cookies     *auth.CookieWriter
	logger      *zap.Logger
}

// NewHandlers wires the handler set.
func NewHandlers(cfg Config, svc *auth.Service, idp provider.Provider, signupCodes *provider.SignupCodeChecker, cookies *auth.CookieWriter, logger *zap.Logger) *Handlers {
	if cfg.SignupSessionTTL == 0 {
		cfg.SignupSessionTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		config:      cfg,
		auth:        svc,
		provider:    idp,
		signupCodes: signupCodes,
		cookies:     cookies,
		logger:      logger,
	}
}

// Router assembles the chi router. Everything mounted inside the guarded
// group sees only requests that passed the gate.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/auth/{mode}", h.handleBegin)
	r.Get("/auth/callback", h.handleCallback)
	r.Post("/auth/signup-code", h.handleSignupCode)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.Guard(h.auth, h.cookies))
		pr.Get("/me", h.handleMe)
	})

	return r
}
