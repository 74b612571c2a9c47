package domain

import (
	"github.com/allisson/keyguard/internal/errors"
)

// API key lifecycle and authorization errors.
var (
	// ErrInvalidRole indicates a role outside the closed role set.
	ErrInvalidRole = errors.Wrap(errors.ErrInvalidInput, "invalid role")

	// ErrKeyNotFound indicates no credential matches the presented token or id.
	ErrKeyNotFound = errors.Wrap(errors.ErrUnauthorized, "key not found")

	// ErrKeyRevoked indicates the credential has been revoked.
	ErrKeyRevoked = errors.Wrap(errors.ErrUnauthorized, "key revoked")

	// ErrKeyExpired indicates the credential expired or its rotation grace period ended.
	ErrKeyExpired = errors.Wrap(errors.ErrUnauthorized, "key expired")

	// ErrStorageUnavailable indicates the storage backend failed or timed out.
	ErrStorageUnavailable = errors.Wrap(errors.ErrUnavailable, "storage unavailable")

	// ErrPermissionDenied indicates the credential's role lacks the required permission.
	ErrPermissionDenied = errors.Wrap(errors.ErrForbidden, "permission denied")

	// ErrInvalidTransition indicates a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.Wrap(errors.ErrInvalidInput, "invalid status transition")

	// ErrRotationNotFound indicates the key has no rotation in progress.
	ErrRotationNotFound = errors.Wrap(errors.ErrNotFound, "rotation not found")

	// ErrAuditSignatureInvalid indicates an audit event was tampered with or signed with another key.
	ErrAuditSignatureInvalid = errors.Wrap(errors.ErrInvalidInput, "audit signature invalid")

	// ErrAuditEventNotFound indicates an audit event with the specified ID was not found.
	ErrAuditEventNotFound = errors.Wrap(errors.ErrNotFound, "audit event not found")
)
