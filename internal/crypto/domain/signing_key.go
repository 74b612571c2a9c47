package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// SigningKey holds HMAC key material loaded from configuration.
//
// The key bytes are copied on load and can be wiped with Close once the
// process no longer needs them.
type SigningKey struct {
	Key []byte
}

// Close securely clears the key material from memory.
func (s *SigningKey) Close() {
	if s == nil {
		return
	}
	Zero(s.Key)
	s.Key = nil
}

// ParseSigningKey decodes a standard base64 signing key.
//
// Returns:
//   - nil, nil when the value is empty (signing disabled)
//   - ErrInvalidKeyBase64 if base64 decoding fails
//   - ErrInvalidKeySize if the decoded key is shorter than MinKeySize
func ParseSigningKey(encoded string) (*SigningKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyBase64, err)
	}
	if len(key) < MinKeySize {
		Zero(key)
		return nil, fmt.Errorf("%w: signing key must be at least %d bytes, got %d", ErrInvalidKeySize, MinKeySize, len(key))
	}

	return &SigningKey{Key: key}, nil
}

// Zero overwrites b with zeros so key material doesn't linger in memory.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
