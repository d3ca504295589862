package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrSigningSecretMissing = errors.New("signing secret is not configured")

// hmacSigner is the shared signing primitive behind both capability
// formats. Each format supplies its own canonical payload encoding; the
// signature computation and the constant-time comparison live here so
// they are implemented exactly once.
type hmacSigner struct {
	secret []byte
}

func newHMACSigner(secret []byte) (hmacSigner, error) {
	if len(secret) == 0 {
		return hmacSigner{}, ErrSigningSecretMissing
	}
	return hmacSigner{secret: secret}, nil
}

// sign returns the hex-encoded HMAC-SHA256 digest of payload.
func (s hmacSigner) sign(payload []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// matches recomputes the digest and compares it against the supplied
// hex signature in constant time. A signature that does not decode as
// hex can never match.
func (s hmacSigner) matches(payload []byte, hexSignature string) bool {
	supplied, err := hex.DecodeString(hexSignature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	return hmac.Equal(supplied, expected)
}
