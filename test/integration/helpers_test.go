// Package integration provides end-to-end tests that drive the keyguard HTTP API
// through a fully wired container against SQLite, PostgreSQL and MySQL.
package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/app"
	"github.com/allisson/keyguard/internal/config"
	"github.com/allisson/keyguard/internal/testutil"
)

const webhookSecret = "integration-webhook-secret" //nolint:gosec // test fixture

// drivers lists the databases every end-to-end test runs against.
// PostgreSQL and MySQL are skipped when their servers are unreachable.
var drivers = []struct {
	name   string
	driver string
}{
	{"SQLite", "sqlite"},
	{"PostgreSQL", "postgres"},
	{"MySQL", "mysql"},
}

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	container  *app.Container
	server     *httptest.Server
	adminToken string
	adminKeyID uuid.UUID
	dbDriver   string
}

// setupIntegrationTest prepares a migrated database, a container wired to it,
// an admin key issued out of band and an HTTP test server.
func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	gin.SetMode(gin.TestMode)

	var dsn string
	switch dbDriver {
	case "postgres":
		db := testutil.SetupPostgresDB(t)
		testutil.TeardownDB(t, db)
		dsn = testutil.GetPostgresTestDSN()
	case "mysql":
		db := testutil.SetupMySQLDB(t)
		testutil.TeardownDB(t, db)
		dsn = testutil.GetMySQLTestDSN()
	default:
		dsn = testutil.SetupSQLiteFile(t)
	}

	signingKey := make([]byte, 32)
	_, err := rand.Read(signingKey)
	require.NoError(t, err)

	cfg := &config.Config{
		ServerHost:               "localhost",
		ServerPort:               8080,
		DBDriver:                 dbDriver,
		DBConnectionString:       dsn,
		DBMaxOpenConnections:     10,
		DBMaxIdleConnections:     5,
		DBConnMaxLifetime:        time.Hour,
		LogLevel:                 "error",
		APIKeyDefaultGracePeriod: time.Hour,
		StorageTimeout:           5 * time.Second,
		CacheDistributedEnabled:  true,
		CacheTTL:                 time.Hour,
		RotationSweepInterval:    time.Minute,
		AuditSigningKey:          base64.StdEncoding.EncodeToString(signingKey),
		AuditBufferSize:          256,
		WebhookSharedSecret:      webhookSecret,
		WebhookRequireSecret:     true,
	}
	require.NoError(t, cfg.Validate())

	container := app.NewContainer(cfg)

	keyUseCase, err := container.KeyUseCase()
	require.NoError(t, err, "failed to get key use case")

	issued, err := keyUseCase.Generate(context.Background(), &apikeyDomain.GenerateKeyInput{
		Role: apikeyDomain.RoleAdmin,
		Name: "integration-admin",
	})
	require.NoError(t, err, "failed to issue admin key")

	httpServer, err := container.HTTPServer()
	require.NoError(t, err, "failed to get HTTP server")
	handler := httpServer.GetHandler()
	require.NotNil(t, handler)

	testCtx := &integrationTestContext{
		container:  container,
		server:     httptest.NewServer(handler),
		adminToken: issued.PlainToken,
		adminKeyID: issued.Key.ID,
		dbDriver:   dbDriver,
	}
	t.Cleanup(func() { teardownIntegrationTest(t, testCtx) })

	return testCtx
}

func teardownIntegrationTest(t *testing.T, testCtx *integrationTestContext) {
	t.Helper()

	if testCtx.server != nil {
		testCtx.server.Close()
	}
	if testCtx.container != nil {
		if err := testCtx.container.Shutdown(context.Background()); err != nil {
			t.Logf("Warning: container shutdown error: %v", err)
		}
	}
}

// makeRequest performs an HTTP request with an optional bearer token and JSON body.
func (c *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body interface{},
	token string,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, c.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.do(t, req)
}

func (c *integrationTestContext) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	_ = resp.Body.Close()

	return resp, respBody
}

// database returns the container's connection pool for direct row manipulation.
func (c *integrationTestContext) database(t *testing.T) *sql.DB {
	t.Helper()
	db, err := c.container.DB()
	require.NoError(t, err)
	return db
}

// idValue converts id to the representation the driver stores.
func idValue(t *testing.T, id uuid.UUID, driver string) any {
	t.Helper()
	switch driver {
	case "postgres":
		return id
	case "sqlite":
		return id.String()
	default:
		value, err := id.MarshalBinary()
		require.NoError(t, err)
		return value
	}
}

func placeholder(driver string) string {
	if driver == "postgres" {
		return "$1"
	}
	return "?"
}
