package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumera-studio/gatehouse/internal/session"
	"github.com/lumera-studio/gatehouse/internal/token"
	"github.com/lumera-studio/gatehouse/internal/user"
)

// Exchange modes. The mode travels through the provider round trip and
// decides whether the verified subject must or must not already exist.
const (
	ModeLogin  = "login"
	ModeSignup = "signup"
)

// ExchangeInput is the output of the external identity provider step: a
// verified subject plus profile hints, never raw provider credentials.
type ExchangeInput struct {
	Subject         string
	DisplayName     string
	Email           string
	Mode            string
	SignupSessionID string
}

// ExchangeResult is the minted token triple plus the resolved user.
// RefreshToken is the value to deliver as a cookie; on a repeat login it is
// the stored code, not a fresh rotation.
type ExchangeResult struct {
	User         *user.User
	AccessToken  string
	RefreshToken string
	CSRFToken    string
}

// Exchange performs the login or signup half of the identity exchange and
// issues the token triple. On any failure no tokens are issued.
func (s *Service) Exchange(ctx context.Context, in ExchangeInput) (*ExchangeResult, error) {
	if in.Subject == "" {
		return nil, ErrInvalidToken
	}

	var account *user.User
	switch in.Mode {
	case ModeLogin:
		existing, err := s.users.GetBySubject(ctx, in.Subject)
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		if err != nil {
			return nil, fmt.Errorf("looking up subject: %w", err)
		}
		account = existing

	case ModeSignup:
		if _, err := s.users.GetBySubject(ctx, in.Subject); err == nil {
			return nil, ErrAlreadyRegistered
		} else if !errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("looking up subject: %w", err)
		}

		if in.SignupSessionID == "" {
			return nil, ErrSignupSessionNotFound
		}
		sess, err := s.sessions.ConsumeSignupSession(ctx, in.SignupSessionID)
		if errors.Is(err, session.ErrSignupSessionNotFound) {
			return nil, ErrSignupSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("consuming signup session: %w", err)
		}
		if s.now().After(sess.ExpiresAt) {
			return nil, ErrSignupSessionExpired
		}

		account = &user.User{
			ExternalSubjectID: in.Subject,
			DisplayName:       in.DisplayName,
			Email:             in.Email,
		}
		if err := s.users.Create(ctx, account); err != nil {
			if errors.Is(err, user.ErrSubjectExists) {
				return nil, ErrAlreadyRegistered
			}
			return nil, fmt.Errorf("creating user: %w", err)
		}
		s.logger.Info("account created",
			zap.String("user_id", account.ID))

	default:
		return nil, fmt.Errorf("unknown exchange mode %q", in.Mode)
	}

	return s.issueTriple(ctx, account)
}

// BeginSignupSession records a short-lived signup session and returns its
// id. Called by the signup-code gate once the invite code checks out.
func (s *Service) BeginSignupSession(ctx context.Context) (string, error) {
	return s.sessions.CreateSignupSession(ctx, s.config.SignupSessionTTL)
}

// issueTriple mints the access token and CSRF token, reusing the stored
// refresh code when a record already exists. A fresh login does not rotate;
// only the request gate rotates, on expiry.
func (s *Service) issueTriple(ctx context.Context, account *user.User) (*ExchangeResult, error) {
	access, err := s.codec.Issue(account.ID, s.config.AccessTTL, token.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}

	var refreshValue string
	record, err := s.sessions.MostRecentRefresh(ctx, account.ID)
	switch {
	case err == nil:
		refreshValue = record.Code
	case errors.Is(err, session.ErrRefreshNotFound):
		refreshValue, err = s.codec.Issue(account.ID, s.config.RefreshTTL, token.KindRefresh)
		if err != nil {
			return nil, fmt.Errorf("issuing refresh token: %w", err)
		}
		record, err = s.sessions.CreateOrRotateRefresh(ctx, account.ID, refreshValue, s.now().Add(s.config.RefreshTTL))
		if err != nil {
			return nil, fmt.Errorf("recording refresh token: %w", err)
		}
	default:
		return nil, fmt.Errorf("loading refresh record: %w", err)
	}

	csrfToken, err := s.csrf.Issue(record.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing csrf token: %w", err)
	}

	s.logger.Info("token triple issued", zap.String("user_id", account.ID))
	return &ExchangeResult{
		User:         account,
		AccessToken:  access,
		RefreshToken: refreshValue,
		CSRFToken:    csrfToken,
	}, nil
}
