package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/apikey/service"
	cryptoDomain "github.com/allisson/keyguard/internal/crypto/domain"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

const verifyBatchPageSize = 500

// auditEventUseCase implements AuditEventUseCase.
type auditEventUseCase struct {
	auditEventRepo AuditEventRepository
	signer         service.AuditSigner
	signingKey     *cryptoDomain.SigningKey
}

// List retrieves audit events ordered by created_at descending. Both time
// bounds are inclusive and optional.
func (a *auditEventUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*apikeyDomain.AuditEvent, error) {
	events, err := a.auditEventRepo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit events")
	}

	return events, nil
}

// VerifyBatch checks every event in [start, end]. Unsigned events are counted
// but not treated as failures.
func (a *auditEventUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*apikeyDomain.AuditVerificationReport, error) {
	if a.signingKey == nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "audit signing key is not configured")
	}

	report := &apikeyDomain.AuditVerificationReport{InvalidEvents: []uuid.UUID{}}

	for offset := 0; ; offset += verifyBatchPageSize {
		events, err := a.auditEventRepo.List(ctx, offset, verifyBatchPageSize, &start, &end)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list audit events")
		}

		for _, event := range events {
			report.TotalChecked++

			if !event.IsSigned {
				report.UnsignedCount++
				continue
			}
			report.SignedCount++

			err := a.signer.Verify(a.signingKey.Key, event)
			switch {
			case err == nil:
				report.ValidCount++
			case errors.Is(err, apikeyDomain.ErrAuditSignatureInvalid):
				report.InvalidCount++
				report.InvalidEvents = append(report.InvalidEvents, event.ID)
			default:
				return nil, apperrors.Wrap(err, "failed to verify audit event")
			}
		}

		if len(events) < verifyBatchPageSize {
			break
		}
	}

	return report, nil
}

// NewAuditEventUseCase creates an AuditEventUseCase. signingKey may be nil, in
// which case VerifyBatch refuses to run.
func NewAuditEventUseCase(
	auditEventRepo AuditEventRepository,
	signer service.AuditSigner,
	signingKey *cryptoDomain.SigningKey,
) AuditEventUseCase {
	return &auditEventUseCase{
		auditEventRepo: auditEventRepo,
		signer:         signer,
		signingKey:     signingKey,
	}
}
