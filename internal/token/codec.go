// Package token creates and verifies the signed, time-bound credentials the
// authentication core hands to browsers: short-lived access tokens and
// longer-lived refresh tokens. The codec is a pure computation; it holds no
// state beyond its injected configuration.
package token

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens so that one can never
// be replayed as the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Config carries the signing material and issuance metadata for a Codec.
// It is injected explicitly; the codec never reads process-wide state.
type Config struct {
	Secret []byte
	Issuer string
	Leeway time.Duration
}

// Codec mints and verifies HS256-signed tokens.
type Codec struct {
	config Config
}

// Claims is the payload embedded in every issued token.
type Claims struct {
	UserID    string `json:"uid"`
	TokenKind Kind   `json:"knd"`
	jwt.RegisteredClaims
}

// Verification is the outcome of verifying a token. Exactly one of three
// shapes is possible:
//
//   - Claims set, Expired false: the token is authentic and current.
//   - Claims set, Expired true: the signature is authentic but the embedded
//     expiry has passed. Callers that only need a trustworthy identity claim
//     (not a live credential) may still read Claims.
//   - Claims nil: the token is malformed, forged, or of the wrong kind.
//     Reason carries the cause for logging; callers must not branch on it.
type Verification struct {
	Claims  *Claims
	Expired bool
	Reason  error
}

// Valid reports whether the token is authentic and not yet expired.
func (v Verification) Valid() bool {
	return v.Claims != nil && !v.Expired
}

// Authentic reports whether the signature verified, regardless of expiry.
func (v Verification) Authentic() bool {
	return v.Claims != nil
}

var errSecretRequired = errors.New("token codec requires a signing secret")

// NewCodec validates cfg and returns a ready codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errSecretRequired
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Codec{config: cfg}, nil
}

// Issue mints a signed token embedding the user id, the kind, a unique jti,
// and an expiry ttl from now.
func (c *Codec) Issue(userID string, ttl time.Duration, kind Kind) (string, error) {
	if userID == "" {
		return "", errors.New("token requires a user id")
	}

	now := time.Now()
	claims := Claims{
		UserID:    userID,
		TokenKind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
}

// Verify checks the signature, structure, kind, and expiry of tokenStr.
// Signature mismatch, malformed input, and kind mismatch all fold into the
// same "not authentic" outcome; expiry alone is reported separately because
// the request gate's refresh branches still need the identity claim from an
// expired-but-authentic token.
func (c *Codec) Verify(tokenStr string, want Kind) Verification {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})

	if parsed == nil || (err != nil && !errors.Is(err, jwt.ErrTokenExpired)) {
		return Verification{Reason: err}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UserID == "" {
		return Verification{Reason: jwt.ErrTokenInvalidClaims}
	}
	if claims.TokenKind != want {
		return Verification{Reason: errors.New("unexpected token kind")}
	}
	if err != nil {
		// Only ErrTokenExpired reaches here: authentic but past expiry.
		return Verification{Claims: claims, Expired: true, Reason: err}
	}

	return Verification{Claims: claims}
}

// ParseTTL converts a compact duration spec such as "15m", "12h", "7d", or
// "365d" into a time.Duration. An unrecognized unit or malformed value falls
// back to one minute; the fallback is deliberate so a misconfigured TTL
// produces a short-lived credential rather than a long-lived one.
func ParseTTL(spec string) time.Duration {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return time.Minute
	}

	cut := len(spec)
	for i, r := range spec {
		if !unicode.IsDigit(r) {
			cut = i
			break
		}
	}

	value, err := strconv.ParseInt(spec[:cut], 10, 64)
	if err != nil || value < 0 {
		return time.Minute
	}

	switch spec[cut:] {
	case "s":
		return time.Duration(value) * time.Second
	case "m":
		return time.Duration(value) * time.Minute
	case "h":
		return time.Duration(value) * time.Hour
	case "d":
		return time.Duration(value) * 24 * time.Hour
	default:
		return time.Minute
	}
}
