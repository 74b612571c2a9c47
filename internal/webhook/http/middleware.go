// Package http provides the gin middleware and handler that authenticate inbound webhook calls.
package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/keyguard/internal/errors"
	"github.com/allisson/keyguard/internal/httputil"
	webhookDomain "github.com/allisson/keyguard/internal/webhook/domain"
	webhookService "github.com/allisson/keyguard/internal/webhook/service"
)

const (
	// SecretHeader carries the shared secret.
	SecretHeader = "X-Webhook-Secret"
	// SignatureHeader carries the GitHub-style "sha256=<hex>" payload signature.
	SignatureHeader = "X-Hub-Signature-256"
	// FallbackSignatureHeader is read when SignatureHeader is absent.
	FallbackSignatureHeader = "X-Signature"

	maxPayloadBytes = 1 << 20
)

type outcomeContextKey struct{}

// WithOutcome stores the pipeline outcome in the context.
func WithOutcome(ctx context.Context, outcome *webhookDomain.Outcome) context.Context {
	return context.WithValue(ctx, outcomeContextKey{}, outcome)
}

// GetOutcome returns the pipeline outcome stored by AuthenticationMiddleware.
func GetOutcome(ctx context.Context) (*webhookDomain.Outcome, bool) {
	outcome, ok := ctx.Value(outcomeContextKey{}).(*webhookDomain.Outcome)
	return outcome, ok
}

// AuthenticationMiddleware runs every call through the webhook pipeline before
// the handler sees it. The body is read once (capped at 1MB) and restored so
// the handler can read it again.
//
// The source address comes from the transport unless trustedProxyHeader names
// a header set by a proxy the deployment controls, in which case its first
// entry is used. Rejected calls get the generic 401 body; the failing stage is
// only visible in the audit trail.
func AuthenticationMiddleware(
	authenticator webhookService.Authenticator,
	trustedProxyHeader string,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
		if err != nil {
			var maxErr *http.MaxBytesError
			if apperrors.As(err, &maxErr) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, httputil.ErrorResponse{
					Error:   "payload_too_large",
					Message: "Request body exceeds the allowed size",
				})
				return
			}
			httputil.HandleBadRequestGin(c, err, logger)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(payload))

		req := &webhookDomain.Request{
			Source:    c.Param("source"),
			SourceIP:  ClientAddr(c.Request, trustedProxyHeader),
			Secret:    c.GetHeader(SecretHeader),
			Signature: signatureHeader(c.Request.Header),
			Payload:   payload,
			RequestID: requestid.Get(c),
		}

		outcome, err := authenticator.Authenticate(c.Request.Context(), req)
		if err != nil {
			if outcome != nil && apperrors.Is(err, apperrors.ErrUnauthorized) {
				logger.Warn("webhook rejected",
					slog.String("source", req.Source),
					slog.String("stage", string(outcome.FailedStage)),
					slog.String("request_id", req.RequestID))
			}
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithOutcome(c.Request.Context(), outcome))
		c.Next()
	}
}

// IPRateLimitMiddleware limits webhook calls per source address.
func IPRateLimitMiddleware(
	ctx context.Context,
	rps float64,
	burst int,
	trustedProxyHeader string,
	logger *slog.Logger,
) gin.HandlerFunc {
	limiter := httputil.NewKeyedRateLimiter[netip.Addr](rps, burst)
	go limiter.RunCleanup(ctx, 5*time.Minute)

	return func(c *gin.Context) {
		addr := ClientAddr(c.Request, trustedProxyHeader)
		if allowed, retryAfter := limiter.Allow(addr); !allowed {
			logger.Debug("webhook rate limit exceeded",
				slog.String("source_ip", addr.String()),
				slog.Duration("retry_after", retryAfter))
			httputil.HandleRateLimitedGin(c, retryAfter)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClientAddr returns the caller's address. With a trusted proxy header only
// the right-most entry is used, since that is the one the proxy appended;
// anything to its left was supplied by the client. An unparseable address
// yields the zero netip.Addr, which the IP filter rejects whenever rules are
// configured.
func ClientAddr(r *http.Request, trustedProxyHeader string) netip.Addr {
	if trustedProxyHeader != "" {
		if values := r.Header.Values(trustedProxyHeader); len(values) > 0 {
			value := values[len(values)-1]
			last := value[strings.LastIndex(value, ",")+1:]
			addr, err := netip.ParseAddr(strings.TrimSpace(last))
			if err != nil {
				return netip.Addr{}
			}
			return addr.Unmap()
		}
	}

	if addrPort, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return addrPort.Addr().Unmap()
	}
	if addr, err := netip.ParseAddr(r.RemoteAddr); err == nil {
		return addr.Unmap()
	}
	return netip.Addr{}
}

func signatureHeader(header http.Header) string {
	if signature := header.Get(SignatureHeader); signature != "" {
		return signature
	}
	return header.Get(FallbackSignatureHeader)
}
