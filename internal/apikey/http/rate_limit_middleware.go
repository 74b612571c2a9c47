package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/keyguard/internal/errors"
	"github.com/allisson/keyguard/internal/httputil"
)

// RateLimitMiddleware enforces per-key rate limiting on authenticated requests.
// It MUST run after AuthenticationMiddleware. Each key id gets an independent
// token bucket; idle buckets are dropped until ctx is cancelled.
func RateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	limiter := httputil.NewKeyedRateLimiter[uuid.UUID](rps, burst)
	go limiter.RunCleanup(ctx, 5*time.Minute)

	return func(c *gin.Context) {
		key, ok := GetKey(c.Request.Context())
		if !ok || key == nil {
			logger.Error("rate limit middleware: no authenticated key in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if allowed, retryAfter := limiter.Allow(key.ID); !allowed {
			logger.Debug("rate limit exceeded",
				slog.String("key_id", key.ID.String()),
				slog.Duration("retry_after", retryAfter))
			httputil.HandleRateLimitedGin(c, retryAfter)
			c.Abort()
			return
		}

		c.Next()
	}
}
