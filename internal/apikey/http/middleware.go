package http

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	apikeyUseCase "github.com/allisson/keyguard/internal/apikey/usecase"
	apperrors "github.com/allisson/keyguard/internal/errors"
	"github.com/allisson/keyguard/internal/httputil"
)

// anonymousActor is recorded on validation events before a key has been resolved.
const anonymousActor = "anonymous"

// AuthenticationMiddleware authenticates requests carrying an API key in the
// Authorization header ("Bearer <token>", case-insensitive scheme).
//
// The raw token is handed to KeyUseCase.Validate, which hashes it and resolves
// it through the cache tiers and storage. On success the key is stored in the
// request context (see GetKey) and audit events emitted by later handlers are
// attributed to the key id.
//
// Every failure, whether the header is missing, the key is unknown, revoked or
// expired, produces the same 401 body. Storage failures produce 503; access is
// never granted on error.
func AuthenticationMiddleware(
	keyUseCase apikeyUseCase.KeyUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		plainToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			logger.Debug("authentication failed: missing or malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		requestID := requestid.Get(c)
		ctx := apikeyUseCase.WithAuditContext(c.Request.Context(), anonymousActor, requestID)

		key, err := keyUseCase.Validate(ctx, plainToken)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx = apikeyUseCase.WithAuditContext(c.Request.Context(), key.ID.String(), requestID)
		c.Request = c.Request.WithContext(WithKey(ctx, key))

		logger.Debug("authentication successful",
			slog.String("key_id", key.ID.String()),
			slog.String("role", string(key.Role)))

		c.Next()
	}
}

// RequirePermission rejects authenticated requests whose key role lacks permission.
// It MUST run after AuthenticationMiddleware.
//
//	router.DELETE("/v1/keys/:id",
//	    AuthenticationMiddleware(keyUseCase, logger),
//	    RequirePermission(keyUseCase, apikeyDomain.ManageKeysPermission, logger),
//	    handler.RevokeHandler)
func RequirePermission(
	keyUseCase apikeyUseCase.KeyUseCase,
	permission apikeyDomain.Permission,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := GetKey(c.Request.Context())
		if !ok || key == nil {
			logger.Error("authorization failed: no authenticated key in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if err := keyUseCase.Authorize(c.Request.Context(), key, permission); err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, bool) {
	const bearerPrefix = "bearer "
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
