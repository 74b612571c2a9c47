package domain

import (
	"time"

	"github.com/google/uuid"
)

// GenerateKeyInput contains the parameters for issuing a new API key.
type GenerateKeyInput struct {
	Role Role
	Name string
	// ExpiryDays overrides the configured default; 0 means the key never expires.
	ExpiryDays *int
}

// RotateKeyInput contains the parameters for rotating an API key.
type RotateKeyInput struct {
	OldKeyID uuid.UUID
	// NewRole overrides the role inherited from the old key.
	NewRole *Role
	Name    string
	// ExpiryDays applies to the replacement key, as in GenerateKeyInput.
	ExpiryDays *int
	// GracePeriod is how long the old key keeps validating; zero uses the default.
	GracePeriod time.Duration
}

// IssuedKey is returned by generate and rotate. PlainToken is shown exactly once
// and is never retrievable again.
type IssuedKey struct {
	PlainToken     string //nolint:gosec // returned to the caller once, never stored
	Key            *APIKey
	RotatedFrom    *uuid.UUID
	GracePeriodEnd *time.Time
}

// AuditVerificationReport summarizes a signature check over a time range.
type AuditVerificationReport struct {
	TotalChecked  int64
	SignedCount   int64
	UnsignedCount int64
	ValidCount    int64
	InvalidCount  int64
	InvalidEvents []uuid.UUID
}
