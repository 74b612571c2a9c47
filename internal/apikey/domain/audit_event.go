package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventType names the decision being recorded.
type AuditEventType string

const (
	EventKeyGenerated         AuditEventType = "key_generated"
	EventKeyValidated         AuditEventType = "key_validated"
	EventKeyRotated           AuditEventType = "key_rotated"
	EventKeyRotationCompleted AuditEventType = "key_rotation_completed"
	EventKeyRevoked           AuditEventType = "key_revoked"
	EventKeyExpired           AuditEventType = "key_expired"
	EventPermissionChecked    AuditEventType = "permission_checked"
	EventWebhookAuthenticated AuditEventType = "webhook_authenticated"
)

// AuditOutcome is the result of an audited decision.
type AuditOutcome string

const (
	OutcomeSuccess AuditOutcome = "success"
	OutcomeFailure AuditOutcome = "failure"
)

// AuditEvent is an append-only record of a credential or webhook decision.
// Signature is populated when events are signed before persistence.
type AuditEvent struct {
	ID        uuid.UUID
	EventType AuditEventType
	KeyID     *uuid.UUID
	Actor     string
	Outcome   AuditOutcome
	Reason    string
	RequestID string
	Metadata  map[string]any
	Signature []byte
	IsSigned  bool
	CreatedAt time.Time
}
