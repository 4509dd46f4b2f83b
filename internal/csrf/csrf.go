// Package csrf implements the keyed double-submit token that binds each
// browser session to the server-side refresh record. A token is an HMAC over
// a length-prefixed message plus the random nonce it was computed from:
//
//	hex(HMAC-SHA256(secret, "len(sid)!sid!len(nonce)!nonce")) + "." + nonce
//
// The explicit lengths make the message unambiguous even if a session id or
// nonce ever contained the delimiter.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// nonceSize is the raw entropy per nonce. 96 bytes encode to 128 base64url
// characters.
const nonceSize = 96

// Service issues and validates double-submit tokens for a single deployment
// secret.
type Service struct {
	secret []byte
}

// NewService returns a Service keyed with secret.
func NewService(secret []byte) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.New("csrf service requires a secret")
	}
	return &Service{secret: secret}, nil
}

// Issue generates a fresh token bound to sessionID. Every call produces a
// distinct token because the nonce is drawn from crypto/rand.
func (s *Service) Issue(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("csrf token requires a session id")
	}

	raw := make([]byte, nonceSize)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	nonce := base64.RawURLEncoding.EncodeToString(raw)

	return s.sign(sessionID, nonce) + "." + nonce, nil
}

// Validate reports whether token is a well-formed token bound to sessionID.
// Malformed input (missing separator, empty parts) is reported as false,
// never as a panic or error; the caller treats every false identically.
func (s *Service) Validate(token, sessionID string) bool {
	if token == "" || sessionID == "" {
		return false
	}

	idx := strings.LastIndex(token, ".")
	if idx <= 0 || idx == len(token)-1 {
		return false
	}
	mac, nonce := token[:idx], token[idx+1:]

	expected := s.sign(sessionID, nonce)
	return subtle.ConstantTimeCompare([]byte(mac), []byte(expected)) == 1
}

func (s *Service) sign(sessionID, nonce string) string {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "%d!%s!%d!%s", len(sessionID), sessionID, len(nonce), nonce)
	return hex.EncodeToString(h.Sum(nil))
}
