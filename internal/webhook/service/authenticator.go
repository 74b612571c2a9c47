// Package service implements the webhook authentication pipeline.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	cryptoService "github.com/allisson/keyguard/internal/crypto/service"
	webhookDomain "github.com/allisson/keyguard/internal/webhook/domain"
)

// AuditSink receives one event per authentication attempt.
type AuditSink interface {
	Log(ctx context.Context, event *apikeyDomain.AuditEvent)
}

// Authenticator runs the webhook authentication pipeline.
type Authenticator interface {
	// Authenticate runs the IP filter, shared-secret and signature stages in
	// that order, stopping at the first failure. The outcome is returned even
	// on failure so callers can inspect each stage.
	Authenticate(ctx context.Context, req *webhookDomain.Request) (*webhookDomain.Outcome, error)
}

type authenticator struct {
	config    *webhookDomain.SecurityConfig
	auditSink AuditSink
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewAuthenticator creates an Authenticator enforcing config.
func NewAuthenticator(
	config *webhookDomain.SecurityConfig,
	auditSink AuditSink,
	clock clockwork.Clock,
	logger *slog.Logger,
) Authenticator {
	return &authenticator{
		config:    config,
		auditSink: auditSink,
		clock:     clock,
		logger:    logger,
	}
}

// stage is one step of the pipeline. A stage that isn't enabled is skipped.
type stage struct {
	name    webhookDomain.Stage
	enabled func() bool
	check   func(req *webhookDomain.Request) bool
	err     error
}

func (a *authenticator) stages() []stage {
	return []stage{
		{
			name:    webhookDomain.StageIPFilter,
			enabled: func() bool { return true },
			check: func(req *webhookDomain.Request) bool {
				return a.config.AllowsIP(req.SourceIP)
			},
			err: webhookDomain.ErrIPBlocked,
		},
		{
			name:    webhookDomain.StageSecret,
			enabled: a.config.RequiresSecret,
			check: func(req *webhookDomain.Request) bool {
				return req.Secret != "" && cryptoService.ConstantTimeEqual(req.Secret, a.config.SharedSecret())
			},
			err: webhookDomain.ErrSecretMismatch,
		},
		{
			name:    webhookDomain.StageSignature,
			enabled: a.config.RequiresSignature,
			check: func(req *webhookDomain.Request) bool {
				return req.Signature != "" &&
					cryptoService.VerifyHMAC(a.config.SigningSecret(), req.Payload, req.Signature)
			},
			err: webhookDomain.ErrSignatureInvalid,
		},
	}
}

func (a *authenticator) Authenticate(
	ctx context.Context,
	req *webhookDomain.Request,
) (*webhookDomain.Outcome, error) {
	stages := a.stages()
	outcome := &webhookDomain.Outcome{Stages: make([]webhookDomain.StageResult, 0, len(stages))}

	var failure error
	for _, s := range stages {
		status := webhookDomain.StagePassed
		switch {
		case failure != nil:
			status = webhookDomain.StageNotReached
		case !s.enabled():
			status = webhookDomain.StageSkipped
		case !s.check(req):
			status = webhookDomain.StageFailed
			failure = s.err
			outcome.FailedStage = s.name
		}
		outcome.Stages = append(outcome.Stages, webhookDomain.StageResult{Stage: s.name, Status: status})
	}

	outcome.Authenticated = failure == nil
	a.emit(ctx, req, outcome, failure)

	if failure != nil {
		a.logger.Debug("webhook authentication failed",
			slog.String("source", req.Source),
			slog.String("stage", string(outcome.FailedStage)))
		return outcome, failure
	}
	return outcome, nil
}

func (a *authenticator) emit(
	ctx context.Context,
	req *webhookDomain.Request,
	outcome *webhookDomain.Outcome,
	failure error,
) {
	metadata := map[string]any{
		"source": req.Source,
		"stages": outcome.StageMap(),
	}
	if req.SourceIP.IsValid() {
		metadata["source_ip"] = req.SourceIP.String()
	}

	event := &apikeyDomain.AuditEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: apikeyDomain.EventWebhookAuthenticated,
		Actor:     "webhook:" + req.Source,
		Outcome:   apikeyDomain.OutcomeSuccess,
		RequestID: req.RequestID,
		Metadata:  metadata,
		CreatedAt: a.clock.Now().UTC(),
	}
	if failure != nil {
		event.Outcome = apikeyDomain.OutcomeFailure
		event.Reason = reasonFor(failure)
	}

	a.auditSink.Log(ctx, event)
}

func reasonFor(err error) string {
	switch err {
	case webhookDomain.ErrIPBlocked:
		return "ip_blocked"
	case webhookDomain.ErrSecretMismatch:
		return "secret_mismatch"
	case webhookDomain.ErrSignatureInvalid:
		return "signature_invalid"
	default:
		return "internal_error"
	}
}

// Sign returns the "sha256=<hex>" signature header value for payload, the
// form providers such as GitHub send.
func Sign(secret, payload []byte) string {
	return cryptoService.SignaturePrefix + cryptoService.SignHMAC(secret, payload)
}
