// Package service provides the stateless cryptographic primitives used by the
// API key manager and the webhook authenticator: secure random tokens, SHA-256
// hashing, constant-time comparison and HMAC-SHA256 signing.
package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"

	cryptoDomain "github.com/allisson/keyguard/internal/crypto/domain"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

// SignaturePrefix is the optional scheme prefix some webhook providers put in front of the hex digest.
const SignaturePrefix = "sha256="

// RandomToken returns size cryptographically secure random bytes encoded as
// unpadded base64 URL-safe text. size must be at least MinKeySize.
func RandomToken(size int) (string, error) {
	if size < cryptoDomain.MinKeySize {
		return "", cryptoDomain.ErrInvalidTokenSize
	}

	randomBytes := make([]byte, size)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", apperrors.Wrap(err, "failed to generate random token")
	}
	defer cryptoDomain.Zero(randomBytes)

	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// GenerateSigningKey returns a new random key of MinKeySize bytes in standard
// base64, the encoding ParseSigningKey expects.
func GenerateSigningKey() (string, error) {
	key := make([]byte, cryptoDomain.MinKeySize)
	if _, err := rand.Read(key); err != nil {
		return "", apperrors.Wrap(err, "failed to generate signing key")
	}
	defer cryptoDomain.Zero(key)

	return base64.StdEncoding.EncodeToString(key), nil
}

// HashSHA256 returns the hex-encoded SHA-256 digest of value.
func HashSHA256(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}

// ConstantTimeEqual compares two strings in time independent of where they differ.
// Strings of different lengths compare unequal.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// SignHMAC returns the hex-encoded HMAC-SHA256 of payload under secret.
func SignHMAC(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks signature against the HMAC-SHA256 of payload. The signature
// may be raw hex or carry the "sha256=" prefix; hex case is ignored.
func VerifyHMAC(secret, payload []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if len(signature) >= len(SignaturePrefix) && strings.EqualFold(signature[:len(SignaturePrefix)], SignaturePrefix) {
		signature = signature[len(SignaturePrefix):]
	}

	presented, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(presented, mac.Sum(nil))
}
