// Package http assembles keyguard's gin routers and runs the API and metrics servers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	apikeyHTTP "github.com/allisson/keyguard/internal/apikey/http"
	apikeyUseCase "github.com/allisson/keyguard/internal/apikey/usecase"
	"github.com/allisson/keyguard/internal/config"
	"github.com/allisson/keyguard/internal/metrics"
	webhookHTTP "github.com/allisson/keyguard/internal/webhook/http"
	webhookService "github.com/allisson/keyguard/internal/webhook/service"
)

// Server is the API server: key management, audit events and webhooks.
type Server struct {
	listener
	db     *sql.DB
	router *gin.Engine
}

// NewServer creates a new HTTP server. SetupRouter must be called before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		listener: newListener("http server", host, port, logger),
		db:       db,
	}
}

// RouterDeps groups everything SetupRouter mounts.
type RouterDeps struct {
	KeyUseCase        apikeyUseCase.KeyUseCase
	KeyHandler        *apikeyHTTP.KeyHandler
	AuditEventHandler *apikeyHTTP.AuditEventHandler
	Authenticator     webhookService.Authenticator
	WebhookHandler    *webhookHTTP.ReceiveHandler
	MetricsProvider   *metrics.Provider
}

// SetupRouter configures the Gin router with all routes and middleware.
// ctx bounds the lifetime of the rate limiter cleanup goroutines.
func (s *Server) SetupRouter(ctx context.Context, cfg *config.Config, deps RouterDeps) {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := newCORSMiddleware(cfg, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MetricsEnabled && deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	authenticated := v1.Group("")
	authenticated.Use(apikeyHTTP.AuthenticationMiddleware(deps.KeyUseCase, s.logger))
	if cfg.RateLimitEnabled {
		authenticated.Use(apikeyHTTP.RateLimitMiddleware(
			ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger,
		))
	}

	requirePermission := func(permission apikeyDomain.Permission) gin.HandlerFunc {
		return apikeyHTTP.RequirePermission(deps.KeyUseCase, permission, s.logger)
	}

	keys := authenticated.Group("/keys")
	{
		keys.GET("/self", requirePermission(apikeyDomain.ReadPermission), deps.KeyHandler.SelfHandler)

		manage := requirePermission(apikeyDomain.ManageKeysPermission)
		keys.POST("", manage, deps.KeyHandler.GenerateHandler)
		keys.GET("", manage, deps.KeyHandler.ListHandler)
		keys.GET("/:id", manage, deps.KeyHandler.GetHandler)
		keys.POST("/:id/rotate", manage, deps.KeyHandler.RotateHandler)
		keys.POST("/:id/complete-rotation", manage, deps.KeyHandler.CompleteRotationHandler)
		keys.DELETE("/:id", manage, deps.KeyHandler.RevokeHandler)
	}

	authenticated.GET("/audit-events",
		requirePermission(apikeyDomain.ManageKeysPermission),
		deps.AuditEventHandler.ListHandler)

	webhooks := v1.Group("/webhooks")
	if cfg.WebhookRateLimitEnabled {
		webhooks.Use(webhookHTTP.IPRateLimitMiddleware(
			ctx,
			cfg.WebhookRateLimitRequestsPerSec,
			cfg.WebhookRateLimitBurst,
			cfg.WebhookTrustedProxyHeader,
			s.logger,
		))
	}
	webhooks.POST("/:source",
		webhookHTTP.AuthenticationMiddleware(deps.Authenticator, cfg.WebhookTrustedProxyHeader, s.logger),
		deps.WebhookHandler.ReceiveHandler)

	s.router = router
}

// Start serves until Shutdown is called.
func (s *Server) Start(_ context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured")
	}
	return s.serve(s.router)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.shutdown(ctx)
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the database answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.db.PingContext(ctx) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}

// CustomLoggerMiddleware logs one structured line per request.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("http request", attrs...)
		case status >= http.StatusBadRequest:
			logger.Warn("http request", attrs...)
		default:
			logger.Info("http request", attrs...)
		}
	}
}
