package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func digestFor(secret []byte, code string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(code))
	return hex.EncodeToString(h.Sum(nil))
}

func TestSignupCodeCheck(t *testing.T) {
	secret := []byte("invite-key")
	checker, err := NewSignupCodeChecker(secret, digestFor(secret, "open-sesame"))
	if err != nil {
		t.Fatalf("new checker: %v", err)
	}

	if !checker.Check("open-sesame") {
		t.Fatal("correct code must pass")
	}
	for _, code := range []string{"", "wrong", "open-sesame "} {
		if checker.Check(code) {
			t.Fatalf("code %q must not pass", code)
		}
	}
}

func TestSignupCodeCheckerConfig(t *testing.T) {
	if _, err := NewSignupCodeChecker(nil, "abc"); err == nil {
		t.Fatal("missing secret must be rejected")
	}
	if _, err := NewSignupCodeChecker([]byte("k"), ""); err == nil {
		t.Fatal("missing digest must be rejected")
	}
}
