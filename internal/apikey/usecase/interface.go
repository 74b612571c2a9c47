// Package usecase defines business logic interfaces for the API key lifecycle.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

// APIKeyRepository defines persistence operations for API keys, the
// authoritative record of every credential. Implementations must support
// transaction-aware operations via context propagation.
type APIKeyRepository interface {
	// Create stores a new API key.
	Create(ctx context.Context, key *apikeyDomain.APIKey) error

	// Update overwrites the mutable fields of an existing key. Repeating it is harmless.
	Update(ctx context.Context, key *apikeyDomain.APIKey) error

	// UpdateLastUsed only touches last_used_at so it can never race a status change.
	UpdateLastUsed(ctx context.Context, keyID uuid.UUID, usedAt time.Time) error

	// Get retrieves a key by ID. Returns ErrKeyNotFound if not found.
	Get(ctx context.Context, keyID uuid.UUID) (*apikeyDomain.APIKey, error)

	// GetBySecretHash retrieves a key by the SHA-256 of its token. Returns ErrKeyNotFound if not found.
	GetBySecretHash(ctx context.Context, secretHash string) (*apikeyDomain.APIKey, error)

	// List returns keys matching filter ordered by created_at descending.
	List(ctx context.Context, filter apikeyDomain.KeyFilter) ([]*apikeyDomain.APIKey, error)
}

// RotationLinkRepository defines persistence operations for in-progress rotations.
type RotationLinkRepository interface {
	Create(ctx context.Context, link *apikeyDomain.RotationLink) error

	// Get returns ErrRotationNotFound if the key has no rotation in progress.
	Get(ctx context.Context, oldKeyID uuid.UUID) (*apikeyDomain.RotationLink, error)

	// Delete removes the link. Deleting a missing link is not an error.
	Delete(ctx context.Context, oldKeyID uuid.UUID) error

	// ListElapsed returns links whose grace period ended at or before now.
	ListElapsed(ctx context.Context, now time.Time) ([]*apikeyDomain.RotationLink, error)
}

// AuditEventRepository defines persistence operations for audit events.
type AuditEventRepository interface {
	Create(ctx context.Context, event *apikeyDomain.AuditEvent) error

	// List retrieves events ordered by created_at descending with pagination and
	// optional inclusive time bounds (nil means unbounded).
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*apikeyDomain.AuditEvent, error)
}

// AuditSink receives audit events. Log must never block or fail the caller.
type AuditSink interface {
	Log(ctx context.Context, event *apikeyDomain.AuditEvent)
}

// KeyUseCase is the API key lifecycle manager. It owns generate, validate,
// rotate and revoke, reads through the cache tiers and storage, and gates
// actions through the role permission table.
type KeyUseCase interface {
	// Generate issues a new key. The plain token in the result is returned exactly once.
	// Returns ErrInvalidRole for a role outside the closed set.
	Generate(ctx context.Context, input *apikeyDomain.GenerateKeyInput) (*apikeyDomain.IssuedKey, error)

	// Validate resolves a raw bearer token to its key. Fails with ErrKeyNotFound,
	// ErrKeyRevoked, ErrKeyExpired or ErrStorageUnavailable; never grants access on error.
	Validate(ctx context.Context, rawToken string) (*apikeyDomain.APIKey, error)

	// Revoke immediately revokes the key and purges it from every cache tier.
	// Revoking an already revoked key returns true without error.
	Revoke(ctx context.Context, keyID uuid.UUID) (bool, error)

	// RotateWithGracePeriod issues a replacement key. Old and new keys both
	// validate until the grace period ends.
	RotateWithGracePeriod(ctx context.Context, input *apikeyDomain.RotateKeyInput) (*apikeyDomain.IssuedKey, error)

	// CompleteRotation ends a grace period early by revoking the old key.
	CompleteRotation(ctx context.Context, oldKeyID uuid.UUID) error

	// ListKeys returns keys matching filter. Secret hashes are never exposed.
	ListKeys(ctx context.Context, filter apikeyDomain.KeyFilter) ([]*apikeyDomain.APIKey, error)

	// GetKey returns a single key without its secret hash.
	GetKey(ctx context.Context, keyID uuid.UUID) (*apikeyDomain.APIKey, error)

	// SweepRotations completes every rotation whose grace period has elapsed
	// and returns how many were completed.
	SweepRotations(ctx context.Context) (int, error)

	// Authorize returns ErrPermissionDenied unless the key's role grants permission.
	Authorize(ctx context.Context, key *apikeyDomain.APIKey, permission apikeyDomain.Permission) error
}

// AuditEventUseCase reads persisted audit events and checks their signatures.
type AuditEventUseCase interface {
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*apikeyDomain.AuditEvent, error)

	// VerifyBatch checks the signature of every event created in [start, end].
	VerifyBatch(ctx context.Context, start, end time.Time) (*apikeyDomain.AuditVerificationReport, error)
}
