package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	usecaseMocks "github.com/allisson/keyguard/internal/apikey/usecase/mocks"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestKey(role apikeyDomain.Role) *apikeyDomain.APIKey {
	return &apikeyDomain.APIKey{
		ID:        uuid.Must(uuid.NewV7()),
		KeyPrefix: "kg_AbCdE",
		Role:      role,
		Name:      "bot",
		Status:    apikeyDomain.StatusActive,
		CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newAuthRouter(mockKeys *usecaseMocks.MockKeyUseCase, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string { return "req-1" })))
	router.GET("/protected", AuthenticationMiddleware(mockKeys, createTestLogger()), handler)
	return router
}

func TestAuthenticationMiddleware(t *testing.T) {
	t.Run("Success_ValidToken", func(t *testing.T) {
		mockKeys := &usecaseMocks.MockKeyUseCase{}
		key := createTestKey(apikeyDomain.RoleOperator)
		mockKeys.On("Validate", mock.Anything, "kg_valid").Return(key, nil).Once()

		var seen *apikeyDomain.APIKey
		router := newAuthRouter(mockKeys, func(c *gin.Context) {
			seen, _ = GetKey(c.Request.Context())
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer kg_valid")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, key.ID, seen.ID)
		mockKeys.AssertExpectations(t)
	})

	t.Run("Success_CaseInsensitiveScheme", func(t *testing.T) {
		mockKeys := &usecaseMocks.MockKeyUseCase{}
		mockKeys.On("Validate", mock.Anything, "kg_valid").
			Return(createTestKey(apikeyDomain.RoleViewer), nil).
			Once()

		router := newAuthRouter(mockKeys, func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "bEaReR kg_valid")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_MissingHeader", func(t *testing.T) {
		mockKeys := &usecaseMocks.MockKeyUseCase{}
		router := newAuthRouter(mockKeys, func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockKeys.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
	})

	t.Run("Error_MalformedHeader", func(t *testing.T) {
		mockKeys := &usecaseMocks.MockKeyUseCase{}
		router := newAuthRouter(mockKeys, func(c *gin.Context) { c.Status(http.StatusOK) })

		for _, header := range []string{"Basic abc", "Bearer", "Bearer    ", "kg_token"} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", header)
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		}
		mockKeys.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
	})

	t.Run("Error_FailuresAreIndistinguishable", func(t *testing.T) {
		mockKeys := &usecaseMocks.MockKeyUseCase{}
		mockKeys.On("Validate", mock.Anything, "kg_revoked").Return(nil, apikeyDomain.ErrKeyRevoked).Once()
		mockKeys.On("Validate", mock.Anything, "kg_unknown").Return(nil, apikeyDomain.ErrKeyNotFound).Once()
		mockKeys.On("Validate", mock.Anything, "kg_expired").Return(nil, apikeyDomain.ErrKeyExpired).Once()

		router := newAuthRouter(mockKeys, func(c *gin.Context) { c.Status(http.StatusOK) })

		var bodies []string
		for _, token := range []string{"kg_revoked", "kg_unknown", "kg_expired"} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			bodies = append(bodies, w.Body.String())
		}
		assert.Equal(t, bodies[0], bodies[1])
		assert.Equal(t, bodies[1], bodies[2])
		mockKeys.AssertExpectations(t)
	})

	t.Run("Error_StorageUnavailableFailsClosed", func(t *testing.T) {
		mockKeys := &usecaseMocks.MockKeyUseCase{}
		mockKeys.On("Validate", mock.Anything, "kg_valid").Return(nil, apikeyDomain.ErrStorageUnavailable).Once()

		called := false
		router := newAuthRouter(mockKeys, func(c *gin.Context) {
			called = true
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer kg_valid")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.False(t, called)
	})
}

func TestRequirePermission(t *testing.T) {
	newRouter := func(mockKeys *usecaseMocks.MockKeyUseCase, key *apikeyDomain.APIKey) *gin.Engine {
		router := gin.New()
		router.GET("/admin",
			func(c *gin.Context) {
				if key != nil {
					c.Request = c.Request.WithContext(WithKey(c.Request.Context(), key))
				}
				c.Next()
			},
			RequirePermission(mockKeys, apikeyDomain.ManageKeysPermission, createTestLogger()),
			func(c *gin.Context) { c.Status(http.StatusOK) },
		)
		return router
	}

	t.Run("Success_PermissionGranted", func(t *testing.T) {
		mockKeys := &usecaseMocks.MockKeyUseCase{}
		key := createTestKey(apikeyDomain.RoleAdmin)
		mockKeys.On("Authorize", mock.Anything, key, apikeyDomain.ManageKeysPermission).Return(nil).Once()

		w := httptest.NewRecorder()
		newRouter(mockKeys, key).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		mockKeys.AssertExpectations(t)
	})

	t.Run("Error_PermissionDenied", func(t *testing.T) {
		mockKeys := &usecaseMocks.MockKeyUseCase{}
		key := createTestKey(apikeyDomain.RoleViewer)
		mockKeys.On("Authorize", mock.Anything, key, apikeyDomain.ManageKeysPermission).
			Return(apikeyDomain.ErrPermissionDenied).
			Once()

		w := httptest.NewRecorder()
		newRouter(mockKeys, key).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Error_NoKeyInContext", func(t *testing.T) {
		mockKeys := &usecaseMocks.MockKeyUseCase{}

		w := httptest.NewRecorder()
		newRouter(mockKeys, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockKeys.AssertNotCalled(t, "Authorize", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := createTestKey(apikeyDomain.RoleViewer)
	other := createTestKey(apikeyDomain.RoleViewer)

	router := gin.New()
	router.GET("/limited",
		func(c *gin.Context) {
			selected := key
			if c.Query("other") != "" {
				selected = other
			}
			c.Request = c.Request.WithContext(WithKey(c.Request.Context(), selected))
			c.Next()
		},
		RateLimitMiddleware(ctx, 1, 2, createTestLogger()),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/limited?other=1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("Bearer kg_abc")
	assert.True(t, ok)
	assert.Equal(t, "kg_abc", token)

	_, ok = bearerToken("Token kg_abc")
	assert.False(t, ok)
}
