package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/apikey/http/dto"
	apikeyUseCase "github.com/allisson/keyguard/internal/apikey/usecase"
	apperrors "github.com/allisson/keyguard/internal/errors"
	"github.com/allisson/keyguard/internal/httputil"
	customValidation "github.com/allisson/keyguard/internal/validation"
)

// KeyHandler handles HTTP requests for API key management.
type KeyHandler struct {
	keyUseCase apikeyUseCase.KeyUseCase
	logger     *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(keyUseCase apikeyUseCase.KeyUseCase, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		keyUseCase: keyUseCase,
		logger:     logger,
	}
}

// GenerateHandler issues a new API key.
// POST /v1/keys - Requires ManageKeysPermission.
// Returns 201 Created with the plain token, shown only once.
func (h *KeyHandler) GenerateHandler(c *gin.Context) {
	var req dto.GenerateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	issued, err := h.keyUseCase.Generate(c.Request.Context(), req.ToInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapIssuedKeyToResponse(issued))
}

// SelfHandler returns the key that authenticated the request.
// GET /v1/keys/self - Requires ReadPermission.
func (h *KeyHandler) SelfHandler(c *gin.Context) {
	key, ok := GetKey(c.Request.Context())
	if !ok || key == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key))
}

// GetHandler retrieves a key by ID.
// GET /v1/keys/:id - Requires ManageKeysPermission.
func (h *KeyHandler) GetHandler(c *gin.Context) {
	keyID, ok := h.parseKeyID(c)
	if !ok {
		return
	}

	key, err := h.keyUseCase.GetKey(c.Request.Context(), keyID)
	if err != nil {
		httputil.HandleErrorGin(c, lookupError(err), h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyToResponse(key))
}

// ListHandler lists keys with optional role and status filters.
// GET /v1/keys?role=operator&status=active&offset=0&limit=50 - Requires ManageKeysPermission.
func (h *KeyHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := apikeyDomain.KeyFilter{Offset: offset, Limit: limit}

	if roleStr := c.Query("role"); roleStr != "" {
		role, err := apikeyDomain.ParseRole(roleStr)
		if err != nil {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid role parameter: must be one of viewer, operator, admin"),
				h.logger)
			return
		}
		filter.Role = role
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := apikeyDomain.Status(statusStr)
		if !status.IsValid() {
			httputil.HandleValidationErrorGin(c,
				fmt.Errorf("invalid status parameter: must be one of active, rotating, expired, revoked"),
				h.logger)
			return
		}
		filter.Status = status
	}

	keys, err := h.keyUseCase.ListKeys(c.Request.Context(), filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeysToListResponse(keys))
}

// RotateHandler issues a replacement key and starts the grace period of the old one.
// POST /v1/keys/:id/rotate - Requires ManageKeysPermission.
// Returns 201 Created with the new plain token, shown only once.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	keyID, ok := h.parseKeyID(c)
	if !ok {
		return
	}

	var req dto.RotateKeyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	issued, err := h.keyUseCase.RotateWithGracePeriod(c.Request.Context(), req.ToInput(keyID))
	if err != nil {
		httputil.HandleErrorGin(c, lookupError(err), h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapIssuedKeyToResponse(issued))
}

// CompleteRotationHandler ends a grace period early by revoking the old key.
// POST /v1/keys/:id/complete-rotation - Requires ManageKeysPermission.
// Returns 204 No Content.
func (h *KeyHandler) CompleteRotationHandler(c *gin.Context) {
	keyID, ok := h.parseKeyID(c)
	if !ok {
		return
	}

	if err := h.keyUseCase.CompleteRotation(c.Request.Context(), keyID); err != nil {
		httputil.HandleErrorGin(c, lookupError(err), h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// RevokeHandler revokes a key immediately.
// DELETE /v1/keys/:id - Requires ManageKeysPermission.
func (h *KeyHandler) RevokeHandler(c *gin.Context) {
	keyID, ok := h.parseKeyID(c)
	if !ok {
		return
	}

	revoked, err := h.keyUseCase.Revoke(c.Request.Context(), keyID)
	if err != nil {
		httputil.HandleErrorGin(c, lookupError(err), h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.RevokeKeyResponse{Revoked: revoked})
}

func (h *KeyHandler) parseKeyID(c *gin.Context) (uuid.UUID, bool) {
	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid key ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return keyID, true
}

// lookupError turns the unauthorized lifecycle errors into not-found on the
// management endpoints: the caller is already authenticated, the target key
// just doesn't exist in a usable state.
func lookupError(err error) error {
	if apperrors.Is(err, apikeyDomain.ErrKeyNotFound) ||
		apperrors.Is(err, apikeyDomain.ErrKeyRevoked) ||
		apperrors.Is(err, apikeyDomain.ErrKeyExpired) {
		return apperrors.Wrap(apperrors.ErrNotFound, err.Error())
	}
	return err
}
