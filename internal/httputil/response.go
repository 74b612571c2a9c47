// Package httputil holds the gin helpers shared by keyguard's handlers: error
// responses, pagination parsing and the rate limiter.
package httputil

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/keyguard/internal/errors"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type errorMapping struct {
	status  int
	code    string
	message string
}

// errorMappings translates error kinds into responses. Unauthorized uses one
// fixed body so callers can't tell which check rejected them.
var errorMappings = map[error]errorMapping{
	apperrors.ErrNotFound: {http.StatusNotFound, "not_found", "The requested resource was not found"},
	apperrors.ErrConflict: {http.StatusConflict, "conflict", "A conflict occurred with existing data"},
	apperrors.ErrUnauthorized: {
		http.StatusUnauthorized, "unauthorized", "Authentication is required",
	},
	apperrors.ErrForbidden: {
		http.StatusForbidden, "forbidden", "You don't have permission to access this resource",
	},
	apperrors.ErrUnavailable: {
		http.StatusServiceUnavailable, "service_unavailable", "The service is temporarily unavailable",
	},
}

var internalErrorMapping = errorMapping{http.StatusInternalServerError, "internal_error", "An internal error occurred"}

// HandleErrorGin writes the JSON response for err's kind. Invalid input echoes
// the error text; every other kind uses a fixed message so internals stay in
// the logs.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	kind := apperrors.KindOf(err)
	mapping, ok := errorMappings[kind]
	switch {
	case kind == apperrors.ErrInvalidInput:
		mapping = errorMapping{http.StatusUnprocessableEntity, "invalid_input", err.Error()}
	case !ok:
		mapping = internalErrorMapping
	}

	if logger != nil {
		level := slog.LevelError
		if mapping.status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c, level, "request failed",
			slog.Int("status_code", mapping.status),
			slog.String("error_code", mapping.code),
			slog.Any("error", err),
		)
	}

	c.JSON(mapping.status, ErrorResponse{Error: mapping.code, Message: mapping.message})
}

// HandleBadRequestGin writes a 400 for a body or parameter that could not be decoded.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusBadRequest, "bad_request", "bad request", err, logger)
}

// HandleValidationErrorGin writes a 422 carrying the validation message.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusUnprocessableEntity, "validation_error", "validation failed", err, logger)
}

func writeClientError(c *gin.Context, status int, code, logMessage string, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn(logMessage, slog.Any("error", err))
	}
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}

// HandleRateLimitedGin writes a 429 Too Many Requests response with a Retry-After header
// rounded up to whole seconds.
func HandleRateLimitedGin(c *gin.Context, retryAfter time.Duration) {
	seconds := int(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	c.Header("Retry-After", fmt.Sprintf("%d", seconds))
	c.JSON(http.StatusTooManyRequests, ErrorResponse{
		Error:   "rate_limit_exceeded",
		Message: "Too many requests. Please retry after the specified delay.",
	})
}
