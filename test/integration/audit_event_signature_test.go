package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

// TestAuditEventSignature_EndToEnd verifies that events written through the API
// are signed and that a modified row is reported by batch verification.
func TestAuditEventSignature_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	for _, tc := range drivers {
		t.Run(tc.name, func(t *testing.T) {
			ctx := setupIntegrationTest(t, tc.driver)
			background := context.Background()

			auditEventUseCase, err := ctx.container.AuditEventUseCase()
			require.NoError(t, err)

			start := time.Now().UTC().Add(-time.Hour)
			end := time.Now().UTC().Add(time.Hour)

			resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/keys/self", nil, ctx.adminToken)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			resp, _ = ctx.makeRequest(t, http.MethodGet, "/v1/keys/self", nil, "kg_unknown_token")
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			// Generate, two validations and the permission check are written asynchronously.
			var events []*apikeyDomain.AuditEvent
			require.Eventually(t, func() bool {
				events, err = auditEventUseCase.List(background, 0, 100, &start, &end)
				return err == nil && len(events) >= 4
			}, 5*time.Second, 50*time.Millisecond)

			t.Run("EventsSignedAndValid", func(t *testing.T) {
				for _, event := range events {
					assert.True(t, event.IsSigned, "event %s should be signed", event.ID)
				}

				report, err := auditEventUseCase.VerifyBatch(background, start, end)
				require.NoError(t, err)
				assert.Equal(t, report.TotalChecked, report.SignedCount)
				assert.Equal(t, report.SignedCount, report.ValidCount)
				assert.Zero(t, report.InvalidCount)
			})

			t.Run("TamperDetection", func(t *testing.T) {
				target := events[0]

				result, err := ctx.database(t).Exec(
					"UPDATE audit_events SET actor = 'forged' WHERE id = "+placeholder(ctx.dbDriver),
					idValue(t, target.ID, ctx.dbDriver),
				)
				require.NoError(t, err)
				rows, err := result.RowsAffected()
				require.NoError(t, err)
				require.Equal(t, int64(1), rows)

				report, err := auditEventUseCase.VerifyBatch(background, start, end)
				require.NoError(t, err)
				assert.Equal(t, int64(1), report.InvalidCount)
				assert.Contains(t, report.InvalidEvents, target.ID)
			})
		})
	}
}
