package http

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	apikeyHTTP "github.com/allisson/keyguard/internal/apikey/http"
	apikeyUseCase "github.com/allisson/keyguard/internal/apikey/usecase"
	usecaseMocks "github.com/allisson/keyguard/internal/apikey/usecase/mocks"
	"github.com/allisson/keyguard/internal/config"
	webhookDomain "github.com/allisson/keyguard/internal/webhook/domain"
	webhookHTTP "github.com/allisson/keyguard/internal/webhook/http"
	webhookService "github.com/allisson/keyguard/internal/webhook/service"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func healthRouter(t *testing.T, db *sql.DB) *gin.Engine {
	t.Helper()
	server := NewServer(db, "127.0.0.1", 0, discardLogger())
	router := gin.New()
	router.GET("/health", server.healthHandler)
	router.GET("/ready", server.readinessHandler)
	return router
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("Success_Health", func(t *testing.T) {
		w := httptest.NewRecorder()
		healthRouter(t, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", decodeBody(t, w)["status"])
	})

	t.Run("Success_ReadyWhenDatabaseAnswers", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		dbMock.ExpectPing()

		w := httptest.NewRecorder()
		healthRouter(t, db).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, map[string]any{"database": "ok"}, body["components"])
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("Error_NotReadyWhenPingFails", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		dbMock.ExpectPing().WillReturnError(assert.AnError)

		w := httptest.NewRecorder()
		healthRouter(t, db).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "not_ready", body["status"])
		assert.Equal(t, map[string]any{"database": "error"}, body["components"])
	})

	t.Run("Error_NotReadyWithoutDatabase", func(t *testing.T) {
		w := httptest.NewRecorder()
		healthRouter(t, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))
	router.Use(gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, _ any) {
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/denied", func(c *gin.Context) { c.Status(http.StatusForbidden) })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	tests := []struct {
		path   string
		status int
		level  string
	}{
		{"/ok", http.StatusOK, "INFO"},
		{"/denied", http.StatusForbidden, "WARN"},
		{"/panic", http.StatusInternalServerError, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path+"?token=kg_should_not_appear", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, tt.path, entry["path"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, w.Header().Get("X-Request-Id"), entry["request_id"])
			assert.NotContains(t, buf.String(), "kg_should_not_appear")
		})
	}
}

func TestServer_StartRequiresRouter(t *testing.T) {
	server := NewServer(nil, "127.0.0.1", 0, discardLogger())
	assert.EqualError(t, server.Start(context.Background()), "router not configured")
}

func TestServer_ShutdownGracefully(t *testing.T) {
	server := NewServer(nil, "127.0.0.1", 0, discardLogger())
	server.router = healthRouter(t, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(context.Background()) }()

	// Give ListenAndServe a moment to bind.
	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestSetupRouter_RequestIDIsUUIDv7(t *testing.T) {
	router, _ := createFullRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	id, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

// TestServer_NoMetricsEndpoint tests that the main server does NOT expose /metrics.
func TestServer_NoMetricsEndpoint(t *testing.T) {
	router, _ := createFullRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func createFullRouter(t *testing.T) (http.Handler, *usecaseMocks.MockKeyUseCase) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	webhookConfig, err := webhookDomain.NewSecurityConfig(webhookDomain.SecurityConfigInput{
		SharedSecret:  "hook-secret",
		RequireSecret: true,
	})
	require.NoError(t, err)
	authenticator := webhookService.NewAuthenticator(
		webhookConfig,
		apikeyUseCase.NewLoggerAuditSink(logger),
		clockwork.NewRealClock(),
		logger,
	)

	keyUseCase := &usecaseMocks.MockKeyUseCase{}
	auditEventUseCase := &usecaseMocks.MockAuditEventUseCase{}

	cfg := &config.Config{LogLevel: "info"}
	server := NewServer(nil, "localhost", 8080, logger)
	server.SetupRouter(t.Context(), cfg, RouterDeps{
		KeyUseCase:        keyUseCase,
		KeyHandler:        apikeyHTTP.NewKeyHandler(keyUseCase, logger),
		AuditEventHandler: apikeyHTTP.NewAuditEventHandler(auditEventUseCase, logger),
		Authenticator:     authenticator,
		WebhookHandler:    webhookHTTP.NewReceiveHandler(logger),
	})
	gin.SetMode(gin.TestMode)

	return server.GetHandler(), keyUseCase
}

func TestSetupRouter(t *testing.T) {
	t.Run("Success_SelfWithValidKey", func(t *testing.T) {
		router, keyUseCase := createFullRouter(t)
		key := &apikeyDomain.APIKey{
			ID:     uuid.Must(uuid.NewV7()),
			Role:   apikeyDomain.RoleViewer,
			Status: apikeyDomain.StatusActive,
		}
		keyUseCase.On("Validate", mock.Anything, "kg_token").Return(key, nil).Once()
		keyUseCase.On("Authorize", mock.Anything, key, apikeyDomain.ReadPermission).Return(nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/keys/self", nil)
		req.Header.Set("Authorization", "Bearer kg_token")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), key.ID.String())
		keyUseCase.AssertExpectations(t)
	})

	t.Run("Error_ManageRouteForbiddenForViewer", func(t *testing.T) {
		router, keyUseCase := createFullRouter(t)
		key := &apikeyDomain.APIKey{ID: uuid.Must(uuid.NewV7()), Role: apikeyDomain.RoleViewer}
		keyUseCase.On("Validate", mock.Anything, "kg_token").Return(key, nil).Once()
		keyUseCase.On("Authorize", mock.Anything, key, apikeyDomain.ManageKeysPermission).
			Return(apikeyDomain.ErrPermissionDenied).
			Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/keys", nil)
		req.Header.Set("Authorization", "Bearer kg_token")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Error_KeysRequireAuthentication", func(t *testing.T) {
		router, _ := createFullRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/keys/self", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Success_WebhookAccepted", func(t *testing.T) {
		router, _ := createFullRouter(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/github", strings.NewReader(`{}`))
		req.Header.Set(webhookHTTP.SecretHeader, "hook-secret")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("Error_WebhookWrongSecret", func(t *testing.T) {
		router, _ := createFullRouter(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/github", strings.NewReader(`{}`))
		req.Header.Set(webhookHTTP.SecretHeader, "wrong")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
