package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	cryptoDomain "github.com/allisson/keyguard/internal/crypto/domain"
)

// auditSigningInfo is the HKDF info label; the version suffix changes with the canonical format.
const auditSigningInfo = "audit-event-signing-v1"

type auditSigner struct{}

// NewAuditSigner creates a new HMAC-based audit event signer using HKDF-SHA256
// for key derivation and HMAC-SHA256 for signature generation.
func NewAuditSigner() AuditSigner {
	return &auditSigner{}
}

// deriveSigningKey uses HKDF-SHA256 to derive a 32-byte signing key from the configured key.
func (a *auditSigner) deriveSigningKey(key []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, key, nil, []byte(auditSigningInfo))

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(reader, signingKey); err != nil {
		return nil, err
	}

	return signingKey, nil
}

// canonicalizeEvent converts an audit event to the byte form that gets signed.
// Format: id || key_id || event_type || actor || outcome || reason || request_id || metadata || created_at
// Variable-length fields are length-prefixed so field boundaries can't be shifted.
func (a *auditSigner) canonicalizeEvent(event *apikeyDomain.AuditEvent) ([]byte, error) {
	buf := make([]byte, 0, 512)

	buf = append(buf, event.ID[:]...)
	if event.KeyID != nil {
		buf = append(buf, 1)
		buf = append(buf, event.KeyID[:]...)
	} else {
		buf = append(buf, 0)
	}

	buf = appendLengthPrefixed(buf, []byte(event.EventType))
	buf = appendLengthPrefixed(buf, []byte(event.Actor))
	buf = appendLengthPrefixed(buf, []byte(event.Outcome))
	buf = appendLengthPrefixed(buf, []byte(event.Reason))
	buf = appendLengthPrefixed(buf, []byte(event.RequestID))

	if event.Metadata != nil {
		// encoding/json sorts map keys, which keeps this deterministic
		metadataBytes, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		buf = appendLengthPrefixed(buf, metadataBytes)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	buf = binary.BigEndian.AppendUint64(buf, uint64(event.CreatedAt.UnixNano()))

	return buf, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	if len(data) > 0xFFFFFFFF {
		panic("data length exceeds uint32 max (4GB)")
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

// Sign generates the HMAC-SHA256 signature for the audit event.
func (a *auditSigner) Sign(key []byte, event *apikeyDomain.AuditEvent) ([]byte, error) {
	signingKey, err := a.deriveSigningKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}
	defer cryptoDomain.Zero(signingKey)

	canonical, err := a.canonicalizeEvent(event)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize event: %w", err)
	}

	mac := hmac.New(sha256.New, signingKey)
	mac.Write(canonical)
	return mac.Sum(nil), nil
}

// Verify checks if the audit event signature is valid.
func (a *auditSigner) Verify(key []byte, event *apikeyDomain.AuditEvent) error {
	expectedSig, err := a.Sign(key, event)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal(event.Signature, expectedSig) {
		return apikeyDomain.ErrAuditSignatureInvalid
	}

	return nil
}
