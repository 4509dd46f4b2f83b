// Package auth is the core of the administrative authentication protocol:
// the per-request gate that classifies token pairs and rotates refresh
// tokens, and the identity exchange that turns a verified provider subject
// into a local session. All durable state lives in the session store and
// user repository; the service itself is safe for concurrent use.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lumera-studio/gatehouse/internal/csrf"
	"github.com/lumera-studio/gatehouse/internal/session"
	"github.com/lumera-studio/gatehouse/internal/token"
	"github.com/lumera-studio/gatehouse/internal/user"
)

// Config carries the credential lifetimes for a Service.
type Config struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	SignupSessionTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.AccessTTL == 0 {
		c.AccessTTL = 15 * time.Minute
	}
	if c.RefreshTTL == 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.SignupSessionTTL == 0 {
		c.SignupSessionTTL = 5 * time.Minute
	}
	return c
}

// Service wires the token codec, CSRF service, session store, and user
// repository into the request gate and identity exchange.
type Service struct {
	config   Config
	codec    *token.Codec
	csrf     *csrf.Service
	sessions *session.Store
	users    user.Repository
	logger   *zap.Logger
	now      func() time.Time
}

// NewService returns a Service over the given collaborators.
func NewService(cfg Config, codec *token.Codec, csrfSvc *csrf.Service, sessions *session.Store, users user.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		config:   cfg.withDefaults(),
		codec:    codec,
		csrf:     csrfSvc,
		sessions: sessions,
		users:    users,
		logger:   logger,
		now:      time.Now,
	}
}

// Credentials is the token material extracted from one inbound request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	CSRFCookie   string
	CSRFHeader   string
}

// Grant is a successful authorization. NewAccessToken and NewRefreshToken
// are set only when the gate reissued the corresponding credential; empty
// means the client's cookie is left untouched.
type Grant struct {
	User            *user.User
	NewAccessToken  string
	NewRefreshToken string
}

// Authorize classifies the request's token pair and either resolves the
// authenticated user, possibly reissuing tokens, or rejects the request.
// The resolved identity always comes from a signature-verified token, never
// from any client-supplied field.
//
// Resolution order: presence checks, independent token verification, CSRF
// double-submit against the refresh record id, then the four-branch
// validity state machine.
func (s *Service) Authorize(ctx context.Context, creds Credentials) (*Grant, error) {
	// CSRF material must be present before any privileged action, even a
	// refresh attempt. Fail fast with no state mutation.
	if creds.AccessToken == "" || creds.CSRFCookie == "" || creds.CSRFHeader == "" {
		return nil, ErrMissingCredential
	}

	access := s.codec.Verify(creds.AccessToken, token.KindAccess)
	refresh := s.codec.Verify(creds.RefreshToken, token.KindRefresh)

	userID := resolveUserID(access, refresh)
	if userID == "" {
		return nil, ErrInvalidToken
	}

	record, err := s.sessions.MostRecentRefresh(ctx, userID)
	if errors.Is(err, session.ErrRefreshNotFound) {
		return nil, ErrAuthorizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading refresh record: %w", err)
	}

	if !s.doubleSubmitOK(creds, record.ID) {
		return nil, ErrCSRFMismatch
	}

	grant := &Grant{}
	switch {
	case !access.Valid() && !refresh.Valid():
		if !codeMatches(record.Code, creds.RefreshToken) {
			return nil, ErrStaleRefresh
		}
		newAccess, err := s.codec.Issue(userID, s.config.AccessTTL, token.KindAccess)
		if err != nil {
			return nil, fmt.Errorf("issuing access token: %w", err)
		}
		newRefresh, err := s.rotateRefresh(ctx, userID)
		if err != nil {
			return nil, err
		}
		grant.NewAccessToken = newAccess
		grant.NewRefreshToken = newRefresh

	case access.Valid() && !refresh.Valid():
		// The access token stays untouched; only the refresh side rotates.
		newRefresh, err := s.rotateRefresh(ctx, userID)
		if err != nil {
			return nil, err
		}
		grant.NewRefreshToken = newRefresh

	case !access.Valid() && refresh.Valid():
		if !codeMatches(record.Code, creds.RefreshToken) {
			return nil, ErrStaleRefresh
		}
		newAccess, err := s.codec.Issue(userID, s.config.AccessTTL, token.KindAccess)
		if err != nil {
			return nil, fmt.Errorf("issuing access token: %w", err)
		}
		grant.NewAccessToken = newAccess

	default:
		// Both valid: no mutation, no new cookies.
	}

	resolved, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolving user: %w", err)
	}
	grant.User = resolved

	return grant, nil
}

// rotateRefresh mints a fresh refresh token and persists it as the user's
// current code. Concurrent rotations for the same user race benignly: the
// last writer wins and earlier winners' codes become stale.
func (s *Service) rotateRefresh(ctx context.Context, userID string) (string, error) {
	newRefresh, err := s.codec.Issue(userID, s.config.RefreshTTL, token.KindRefresh)
	if err != nil {
		return "", fmt.Errorf("issuing refresh token: %w", err)
	}
	if _, err := s.sessions.CreateOrRotateRefresh(ctx, userID, newRefresh, s.now().Add(s.config.RefreshTTL)); err != nil {
		return "", fmt.Errorf("rotating refresh record: %w", err)
	}
	return newRefresh, nil
}

// doubleSubmitOK enforces the double-submit contract: the header token and
// the cookie token must each validate against the record id, and the two
// values must be byte-identical.
func (s *Service) doubleSubmitOK(creds Credentials, recordID string) bool {
	if !s.csrf.Validate(creds.CSRFHeader, recordID) {
		return false
	}
	if !s.csrf.Validate(creds.CSRFCookie, recordID) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(creds.CSRFHeader), []byte(creds.CSRFCookie)) == 1
}

// resolveUserID picks the identity claim for the session lookup: a live
// token wins, then an authentic-but-expired one. An empty result means no
// signature-verified claim exists.
func resolveUserID(access, refresh token.Verification) string {
	switch {
	case access.Valid():
		return access.Claims.UserID
	case refresh.Valid():
		return refresh.Claims.UserID
	case access.Authentic():
		return access.Claims.UserID
	case refresh.Authentic():
		return refresh.Claims.UserID
	default:
		return ""
	}
}

func codeMatches(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
