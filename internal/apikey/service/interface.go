// Package service provides technical services for API key operations.
//
// This package implements token generation and hashing for bearer credentials
// and HMAC signing of audit events.
package service

import (
	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

// TokenService defines operations for API key token generation and hashing.
// Implementations must use cryptographically secure random generation and
// a fast, unsalted hash so tokens can be looked up by hash.
type TokenService interface {
	// GenerateToken creates a new cryptographically secure random token.
	// Returns both the plain text token (to be shared with the caller exactly once) and
	// the hashed version (to be stored in the database).
	GenerateToken() (plainToken string, tokenHash string, err error)

	// HashToken hashes a plain text token using SHA-256.
	HashToken(plainToken string) string

	// Prefix returns the leading characters of a plain token used to identify
	// a key in listings without revealing it.
	Prefix(plainToken string) string
}

// AuditSigner signs and verifies audit events for tamper detection.
type AuditSigner interface {
	// Sign returns the HMAC-SHA256 signature of the event's canonical form.
	Sign(key []byte, event *apikeyDomain.AuditEvent) ([]byte, error)

	// Verify returns ErrAuditSignatureInvalid if event.Signature doesn't match.
	Verify(key []byte, event *apikeyDomain.AuditEvent) error
}
