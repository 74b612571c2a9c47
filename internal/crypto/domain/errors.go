package domain

import (
	"github.com/allisson/keyguard/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures.
var (
	// ErrInvalidKeySize indicates a signing key shorter than 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrInvalidKeyBase64 indicates the configured key is not valid standard base64.
	ErrInvalidKeyBase64 = errors.Wrap(errors.ErrInvalidInput, "invalid key base64")

	// ErrInvalidTokenSize indicates a random token request below the minimum entropy.
	ErrInvalidTokenSize = errors.Wrap(errors.ErrInvalidInput, "invalid token size")
)
