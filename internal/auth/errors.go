package auth

import "errors"

var (
	// ErrMissingCredential is returned when the access token, CSRF cookie,
	// or CSRF header is absent from the request.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidToken is returned when neither presented token carries an
	// authentic identity claim. Signature mismatch, malformed tokens, and
	// kind replay all surface here.
	ErrInvalidToken = errors.New("token not verified")
	// ErrCSRFMismatch is returned when the double-submit check fails. It is
	// terminal regardless of token validity.
	ErrCSRFMismatch = errors.New("csrf mismatch")
	// ErrStaleRefresh is returned when the presented refresh token does not
	// match the stored record, signalling replay of a rotated-out token.
	ErrStaleRefresh = errors.New("invalid refresh token")
	// ErrAuthorizationNotFound is returned when the user has no refresh
	// record at all.
	ErrAuthorizationNotFound = errors.New("authorization not found")
	// ErrUserNotFound is returned when a verified token names a user the
	// repository does not know.
	ErrUserNotFound = errors.New("user not found")

	// Exchange failures. These are business-state messages surfaced on the
	// login redirect, not cryptographic state.

	// ErrNotRegistered is returned on a login exchange for an unknown subject.
	ErrNotRegistered = errors.New("account not registered")
	// ErrAlreadyRegistered is returned on a signup exchange for a known subject.
	ErrAlreadyRegistered = errors.New("account already registered")
	// ErrSignupSessionNotFound is returned when the signup session reference
	// is absent or already consumed.
	ErrSignupSessionNotFound = errors.New("signup session not found")
	// ErrSignupSessionExpired is returned when the signup session exists but
	// its expiry has passed.
	ErrSignupSessionExpired = errors.New("signup session expired")
)
