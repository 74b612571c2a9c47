package service

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

func newSigningKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func newAuditEvent() *apikeyDomain.AuditEvent {
	keyID := uuid.Must(uuid.NewV7())
	return &apikeyDomain.AuditEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: apikeyDomain.EventKeyRevoked,
		KeyID:     &keyID,
		Actor:     "admin-key",
		Outcome:   apikeyDomain.OutcomeSuccess,
		Reason:    "",
		RequestID: "req-1",
		Metadata:  map[string]any{"role": "operator"},
		CreatedAt: time.Now().UTC(),
	}
}

func TestAuditSigner_SignAndVerify(t *testing.T) {
	signer := NewAuditSigner()
	key := newSigningKey(t)
	event := newAuditEvent()

	signature, err := signer.Sign(key, event)
	require.NoError(t, err)
	assert.Len(t, signature, 32, "HMAC-SHA256 should produce 32-byte signature")

	event.Signature = signature
	assert.NoError(t, signer.Verify(key, event))
}

func TestAuditSigner_VerifyDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(e *apikeyDomain.AuditEvent)
	}{
		{"outcome", func(e *apikeyDomain.AuditEvent) { e.Outcome = apikeyDomain.OutcomeFailure }},
		{"event type", func(e *apikeyDomain.AuditEvent) { e.EventType = apikeyDomain.EventKeyGenerated }},
		{"actor", func(e *apikeyDomain.AuditEvent) { e.Actor = "someone-else" }},
		{"key id", func(e *apikeyDomain.AuditEvent) { e.KeyID = nil }},
		{"reason", func(e *apikeyDomain.AuditEvent) { e.Reason = "key revoked" }},
		{"metadata", func(e *apikeyDomain.AuditEvent) { e.Metadata = map[string]any{"role": "admin"} }},
		{"timestamp", func(e *apikeyDomain.AuditEvent) { e.CreatedAt = e.CreatedAt.Add(time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer := NewAuditSigner()
			key := newSigningKey(t)
			event := newAuditEvent()

			signature, err := signer.Sign(key, event)
			require.NoError(t, err)
			event.Signature = signature

			tt.tamper(event)

			assert.ErrorIs(t, signer.Verify(key, event), apikeyDomain.ErrAuditSignatureInvalid)
		})
	}
}

func TestAuditSigner_WrongKey(t *testing.T) {
	signer := NewAuditSigner()
	event := newAuditEvent()

	signature, err := signer.Sign(newSigningKey(t), event)
	require.NoError(t, err)
	event.Signature = signature

	assert.ErrorIs(t, signer.Verify(newSigningKey(t), event), apikeyDomain.ErrAuditSignatureInvalid)
}

func TestAuditSigner_FieldBoundaries(t *testing.T) {
	signer := NewAuditSigner()
	key := newSigningKey(t)

	event1 := newAuditEvent()
	event1.Actor = "ab"
	event1.Reason = "c"

	event2 := *event1
	event2.Actor = "a"
	event2.Reason = "bc"

	sig1, err := signer.Sign(key, event1)
	require.NoError(t, err)
	sig2, err := signer.Sign(key, &event2)
	require.NoError(t, err)

	assert.NotEqual(t, sig1, sig2)
}
