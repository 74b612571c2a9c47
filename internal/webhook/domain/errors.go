package domain

import (
	"github.com/allisson/keyguard/internal/errors"
)

// Webhook authentication errors. The three pipeline failures all wrap
// ErrUnauthorized so callers only ever see a generic 401.
var (
	// ErrIPBlocked indicates the caller address is denied or not allowed.
	ErrIPBlocked = errors.Wrap(errors.ErrUnauthorized, "ip blocked")

	// ErrSecretMismatch indicates the shared secret was missing or wrong.
	ErrSecretMismatch = errors.Wrap(errors.ErrUnauthorized, "secret mismatch")

	// ErrSignatureInvalid indicates the payload signature was missing or wrong.
	ErrSignatureInvalid = errors.Wrap(errors.ErrUnauthorized, "signature invalid")

	// ErrInvalidCIDR indicates a malformed network in the allow or deny list.
	ErrInvalidCIDR = errors.Wrap(errors.ErrInvalidInput, "invalid cidr")

	// ErrMissingSecret indicates a mandatory check was enabled without its secret.
	ErrMissingSecret = errors.Wrap(errors.ErrInvalidInput, "missing webhook secret")
)
