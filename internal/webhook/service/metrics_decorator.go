package service

import (
	"context"
	"time"

	"github.com/allisson/keyguard/internal/metrics"
	webhookDomain "github.com/allisson/keyguard/internal/webhook/domain"
)

// authenticatorWithMetrics decorates Authenticator with metrics instrumentation.
type authenticatorWithMetrics struct {
	next    Authenticator
	metrics metrics.BusinessMetrics
}

// NewAuthenticatorWithMetrics wraps an Authenticator with metrics recording.
func NewAuthenticatorWithMetrics(authenticator Authenticator, m metrics.BusinessMetrics) Authenticator {
	return &authenticatorWithMetrics{
		next:    authenticator,
		metrics: m,
	}
}

// Authenticate records metrics for webhook authentication. Failures are
// labelled with the stage that rejected the call.
func (a *authenticatorWithMetrics) Authenticate(
	ctx context.Context,
	req *webhookDomain.Request,
) (*webhookDomain.Outcome, error) {
	start := time.Now()
	outcome, err := a.next.Authenticate(ctx, req)

	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		if outcome != nil && outcome.FailedStage != "" {
			status = "rejected_" + string(outcome.FailedStage)
		}
	}

	a.metrics.RecordOperation(ctx, metrics.DomainWebhook, "webhook_authenticate", status)
	a.metrics.RecordDuration(ctx, metrics.DomainWebhook, "webhook_authenticate", time.Since(start), status)
	return outcome, err
}
