package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// SignupCodeChecker gates account creation behind a shared invite code. The
// code itself is never configured in clear; only its keyed digest is. A
// successful check is what entitles the caller to a signup session.
type SignupCodeChecker struct {
	secret []byte
	digest string
}

// NewSignupCodeChecker builds a checker from the HMAC key and the expected
// hex digest of the invite code.
func NewSignupCodeChecker(secret []byte, digest string) (*SignupCodeChecker, error) {
	if len(secret) == 0 {
		return nil, errors.New("signup code checker requires a secret")
	}
	if digest == "" {
		return nil, errors.New("signup code checker requires an expected digest")
	}
	return &SignupCodeChecker{secret: secret, digest: digest}, nil
}

// Check reports whether code matches the configured digest.
func (c *SignupCodeChecker) Check(code string) bool {
	if code == "" {
		return false
	}
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(code))
	computed := hex.EncodeToString(h.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(computed), []byte(c.digest)) == 1
}
