package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// APIKey is the authoritative record of a bearer credential.
// The raw token is never stored, only its SHA-256 hash.
type APIKey struct {
	ID         uuid.UUID // Unique identifier (UUIDv7)
	SecretHash string    //nolint:gosec // SHA-256 of the raw token, never the token itself
	KeyPrefix  string    // Leading characters of the raw token for operator identification
	Role       Role
	Name       string
	Status     Status
	CreatedAt  time.Time
	ExpiresAt  *time.Time // nil means the key never expires
	LastUsedAt *time.Time
}

// IsExpiredAt reports whether the key's own expiry has passed at now.
func (k *APIKey) IsExpiredAt(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

// TransitionTo moves the key to next, rejecting backward or unknown transitions.
func (k *APIKey) TransitionTo(next Status) error {
	if !k.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, k.Status, next)
	}
	k.Status = next
	return nil
}

// Clone returns a deep copy so callers can't mutate a cached record.
func (k *APIKey) Clone() *APIKey {
	if k == nil {
		return nil
	}
	c := *k
	if k.ExpiresAt != nil {
		t := *k.ExpiresAt
		c.ExpiresAt = &t
	}
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		c.LastUsedAt = &t
	}
	return &c
}

// KeyFilter narrows ListKeys results. Zero values match everything.
type KeyFilter struct {
	Role   Role
	Status Status
	Offset int
	Limit  int
}

// Matches reports whether key satisfies the role and status filters.
func (f KeyFilter) Matches(key *APIKey) bool {
	if f.Role != "" && key.Role != f.Role {
		return false
	}
	if f.Status != "" && key.Status != f.Status {
		return false
	}
	return true
}

// CachedKey is the derived, non-authoritative form of an APIKey kept in the cache tiers.
// GraceEndsAt is set while the key is rotating.
type CachedKey struct {
	Key         *APIKey
	GraceEndsAt *time.Time
}

// Redacted returns a copy without the secret hash, for anything leaving the core.
func (k *APIKey) Redacted() *APIKey {
	c := k.Clone()
	if c != nil {
		c.SecretHash = ""
	}
	return c
}
