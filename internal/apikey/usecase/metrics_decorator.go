package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/metrics"
)

const metricsDomain = metrics.DomainAPIKey

func statusOf(err error) string {
	if err != nil {
		return metrics.StatusError
	}
	return metrics.StatusSuccess
}

// keyUseCaseWithMetrics decorates KeyUseCase with metrics instrumentation.
type keyUseCaseWithMetrics struct {
	next    KeyUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyUseCaseWithMetrics wraps a KeyUseCase with metrics recording.
func NewKeyUseCaseWithMetrics(useCase KeyUseCase, m metrics.BusinessMetrics) KeyUseCase {
	return &keyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (k *keyUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := statusOf(err)
	k.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	k.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Generate records metrics for key generation.
func (k *keyUseCaseWithMetrics) Generate(
	ctx context.Context,
	input *apikeyDomain.GenerateKeyInput,
) (*apikeyDomain.IssuedKey, error) {
	start := time.Now()
	issued, err := k.next.Generate(ctx, input)
	k.record(ctx, "key_generate", start, err)
	return issued, err
}

// Validate records metrics for token validation.
func (k *keyUseCaseWithMetrics) Validate(ctx context.Context, rawToken string) (*apikeyDomain.APIKey, error) {
	start := time.Now()
	key, err := k.next.Validate(ctx, rawToken)
	k.record(ctx, "key_validate", start, err)
	return key, err
}

// Revoke records metrics for key revocation.
func (k *keyUseCaseWithMetrics) Revoke(ctx context.Context, keyID uuid.UUID) (bool, error) {
	start := time.Now()
	revoked, err := k.next.Revoke(ctx, keyID)
	k.record(ctx, "key_revoke", start, err)
	return revoked, err
}

// RotateWithGracePeriod records metrics for key rotation.
func (k *keyUseCaseWithMetrics) RotateWithGracePeriod(
	ctx context.Context,
	input *apikeyDomain.RotateKeyInput,
) (*apikeyDomain.IssuedKey, error) {
	start := time.Now()
	issued, err := k.next.RotateWithGracePeriod(ctx, input)
	k.record(ctx, "key_rotate", start, err)
	return issued, err
}

// CompleteRotation records metrics for explicit rotation completion.
func (k *keyUseCaseWithMetrics) CompleteRotation(ctx context.Context, oldKeyID uuid.UUID) error {
	start := time.Now()
	err := k.next.CompleteRotation(ctx, oldKeyID)
	k.record(ctx, "key_rotation_complete", start, err)
	return err
}

// ListKeys records metrics for key listing.
func (k *keyUseCaseWithMetrics) ListKeys(
	ctx context.Context,
	filter apikeyDomain.KeyFilter,
) ([]*apikeyDomain.APIKey, error) {
	start := time.Now()
	keys, err := k.next.ListKeys(ctx, filter)
	k.record(ctx, "key_list", start, err)
	return keys, err
}

// GetKey records metrics for key retrieval.
func (k *keyUseCaseWithMetrics) GetKey(ctx context.Context, keyID uuid.UUID) (*apikeyDomain.APIKey, error) {
	start := time.Now()
	key, err := k.next.GetKey(ctx, keyID)
	k.record(ctx, "key_get", start, err)
	return key, err
}

// SweepRotations records metrics for the rotation sweep.
func (k *keyUseCaseWithMetrics) SweepRotations(ctx context.Context) (int, error) {
	start := time.Now()
	count, err := k.next.SweepRotations(ctx)
	k.record(ctx, "rotation_sweep", start, err)
	return count, err
}

// Authorize records metrics for permission checks.
func (k *keyUseCaseWithMetrics) Authorize(
	ctx context.Context,
	key *apikeyDomain.APIKey,
	permission apikeyDomain.Permission,
) error {
	start := time.Now()
	err := k.next.Authorize(ctx, key, permission)
	k.record(ctx, "permission_check", start, err)
	return err
}

// auditEventUseCaseWithMetrics decorates AuditEventUseCase with metrics instrumentation.
type auditEventUseCaseWithMetrics struct {
	next    AuditEventUseCase
	metrics metrics.BusinessMetrics
}

// NewAuditEventUseCaseWithMetrics wraps an AuditEventUseCase with metrics recording.
func NewAuditEventUseCaseWithMetrics(useCase AuditEventUseCase, m metrics.BusinessMetrics) AuditEventUseCase {
	return &auditEventUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// List records metrics for audit event listing.
func (a *auditEventUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*apikeyDomain.AuditEvent, error) {
	start := time.Now()
	events, err := a.next.List(ctx, offset, limit, createdAtFrom, createdAtTo)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, metricsDomain, "audit_event_list", status)
	a.metrics.RecordDuration(ctx, metricsDomain, "audit_event_list", time.Since(start), status)

	return events, err
}

// VerifyBatch records metrics for batch audit event verification.
func (a *auditEventUseCaseWithMetrics) VerifyBatch(
	ctx context.Context,
	startTime, endTime time.Time,
) (*apikeyDomain.AuditVerificationReport, error) {
	start := time.Now()
	report, err := a.next.VerifyBatch(ctx, startTime, endTime)

	status := statusOf(err)
	a.metrics.RecordOperation(ctx, metricsDomain, "audit_event_verify_batch", status)
	a.metrics.RecordDuration(ctx, metricsDomain, "audit_event_verify_batch", time.Since(start), status)

	return report, err
}
