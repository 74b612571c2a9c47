package dto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

func intPtr(v int) *int {
	return &v
}

func stringPtr(v string) *string {
	return &v
}

func TestGenerateKeyRequest_Validate(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		req := GenerateKeyRequest{Role: "operator", Name: "bot", ExpiryDays: intPtr(90)}
		assert.NoError(t, req.Validate())
	})

	t.Run("Success_RoleIsCaseInsensitive", func(t *testing.T) {
		req := GenerateKeyRequest{Role: "Admin"}
		require.NoError(t, req.Validate())
		assert.Equal(t, apikeyDomain.RoleAdmin, req.ToInput().Role)
	})

	t.Run("Error_MissingRole", func(t *testing.T) {
		req := GenerateKeyRequest{Name: "bot"}
		assert.Error(t, req.Validate())
	})

	t.Run("Error_UnknownRole", func(t *testing.T) {
		req := GenerateKeyRequest{Role: "superuser"}
		err := req.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "viewer, operator, admin")
	})

	t.Run("Error_BlankName", func(t *testing.T) {
		req := GenerateKeyRequest{Role: "viewer", Name: "   "}
		assert.Error(t, req.Validate())
	})

	t.Run("Error_NegativeExpiry", func(t *testing.T) {
		req := GenerateKeyRequest{Role: "viewer", ExpiryDays: intPtr(-1)}
		assert.Error(t, req.Validate())
	})
}

func TestGenerateKeyRequest_ToInput(t *testing.T) {
	req := GenerateKeyRequest{Role: "operator", Name: "bot", ExpiryDays: intPtr(90)}

	input := req.ToInput()
	assert.Equal(t, apikeyDomain.RoleOperator, input.Role)
	assert.Equal(t, "bot", input.Name)
	assert.Equal(t, 90, *input.ExpiryDays)
}

func TestRotateKeyRequest_Validate(t *testing.T) {
	t.Run("Success_EmptyRequest", func(t *testing.T) {
		req := RotateKeyRequest{}
		assert.NoError(t, req.Validate())
	})

	t.Run("Success_AllFields", func(t *testing.T) {
		req := RotateKeyRequest{
			Role:               stringPtr("admin"),
			Name:               "bot v2",
			ExpiryDays:         intPtr(30),
			GracePeriodMinutes: intPtr(60),
		}
		assert.NoError(t, req.Validate())
	})

	t.Run("Error_EmptyRole", func(t *testing.T) {
		req := RotateKeyRequest{Role: stringPtr("")}
		assert.Error(t, req.Validate())
	})

	t.Run("Error_UnknownRole", func(t *testing.T) {
		req := RotateKeyRequest{Role: stringPtr("root")}
		assert.Error(t, req.Validate())
	})

	t.Run("Error_ZeroGracePeriod", func(t *testing.T) {
		req := RotateKeyRequest{GracePeriodMinutes: intPtr(0)}
		assert.Error(t, req.Validate())
	})

	t.Run("Error_GracePeriodTooLong", func(t *testing.T) {
		req := RotateKeyRequest{GracePeriodMinutes: intPtr(maxGracePeriodMinutes + 1)}
		assert.Error(t, req.Validate())
	})
}

func TestRotateKeyRequest_ToInput(t *testing.T) {
	oldKeyID := uuid.Must(uuid.NewV7())

	t.Run("Success_Defaults", func(t *testing.T) {
		req := RotateKeyRequest{}
		input := req.ToInput(oldKeyID)

		assert.Equal(t, oldKeyID, input.OldKeyID)
		assert.Nil(t, input.NewRole)
		assert.Zero(t, input.GracePeriod)
	})

	t.Run("Success_Overrides", func(t *testing.T) {
		req := RotateKeyRequest{Role: stringPtr("viewer"), GracePeriodMinutes: intPtr(15)}
		input := req.ToInput(oldKeyID)

		require.NotNil(t, input.NewRole)
		assert.Equal(t, apikeyDomain.RoleViewer, *input.NewRole)
		assert.Equal(t, 15*time.Minute, input.GracePeriod)
	})
}
