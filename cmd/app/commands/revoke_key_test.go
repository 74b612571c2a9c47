package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	usecaseMocks "github.com/allisson/keyguard/internal/apikey/usecase/mocks"
)

func TestRunRevokeKey(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()
	keyID := uuid.Must(uuid.NewV7())

	t.Run("success-text", func(t *testing.T) {
		mockUseCase := &usecaseMocks.MockKeyUseCase{}
		mockUseCase.On("Revoke", ctx, keyID).Return(true, nil).Once()

		var out bytes.Buffer
		err := RunRevokeKey(ctx, mockUseCase, logger, &out, keyID.String(), "text")
		require.NoError(t, err)
		require.Contains(t, out.String(), "API key "+keyID.String()+" revoked: true")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("success-json", func(t *testing.T) {
		mockUseCase := &usecaseMocks.MockKeyUseCase{}
		mockUseCase.On("Revoke", ctx, keyID).Return(true, nil).Once()

		var out bytes.Buffer
		err := RunRevokeKey(ctx, mockUseCase, logger, &out, keyID.String(), "json")
		require.NoError(t, err)

		var result map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		require.Equal(t, true, result["revoked"])
		require.Equal(t, keyID.String(), result["id"])
	})

	t.Run("invalid-id", func(t *testing.T) {
		mockUseCase := &usecaseMocks.MockKeyUseCase{}

		err := RunRevokeKey(ctx, mockUseCase, logger, &bytes.Buffer{}, "not-a-uuid", "text")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid key id")
		mockUseCase.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})

	t.Run("not-found", func(t *testing.T) {
		mockUseCase := &usecaseMocks.MockKeyUseCase{}
		mockUseCase.On("Revoke", ctx, keyID).Return(false, apikeyDomain.ErrKeyNotFound).Once()

		err := RunRevokeKey(ctx, mockUseCase, logger, &bytes.Buffer{}, keyID.String(), "text")
		require.ErrorIs(t, err, apikeyDomain.ErrKeyNotFound)
	})
}
