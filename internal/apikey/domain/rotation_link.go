package domain

import (
	"time"

	"github.com/google/uuid"
)

// RotationLink ties a rotating key to its replacement until the grace period ends.
// It exists only while the old key's status is rotating.
type RotationLink struct {
	OldKeyID       uuid.UUID
	NewKeyID       uuid.UUID
	GracePeriodEnd time.Time
	CreatedAt      time.Time
}

// IsElapsedAt reports whether the grace period has ended at now.
func (r *RotationLink) IsElapsedAt(now time.Time) bool {
	return !now.Before(r.GracePeriodEnd)
}
