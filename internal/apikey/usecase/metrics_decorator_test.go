package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/apikey/usecase"
	usecaseMocks "github.com/allisson/keyguard/internal/apikey/usecase/mocks"
)

// mockBusinessMetrics is a local mock for metrics.BusinessMetrics.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func expectMetrics(m *mockBusinessMetrics, ctx context.Context, operation, status string) {
	m.On("RecordOperation", ctx, "apikey", operation, status).Return().Once()
	m.On("RecordDuration", ctx, "apikey", operation, mock.AnythingOfType("time.Duration"), status).
		Return().
		Once()
}

func TestKeyUseCaseWithMetrics(t *testing.T) {
	mockNext := &usecaseMocks.MockKeyUseCase{}
	mockMetrics := &mockBusinessMetrics{}
	uc := usecase.NewKeyUseCaseWithMetrics(mockNext, mockMetrics)

	ctx := context.Background()
	keyID := uuid.New()

	t.Run("Generate success", func(t *testing.T) {
		input := &apikeyDomain.GenerateKeyInput{Role: apikeyDomain.RoleViewer}
		output := &apikeyDomain.IssuedKey{PlainToken: "kg_token", Key: &apikeyDomain.APIKey{ID: keyID}}

		mockNext.On("Generate", ctx, input).Return(output, nil).Once()
		expectMetrics(mockMetrics, ctx, "key_generate", "success")

		res, err := uc.Generate(ctx, input)
		assert.NoError(t, err)
		assert.Equal(t, output, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Validate error", func(t *testing.T) {
		mockNext.On("Validate", ctx, "kg_bad").Return(nil, apikeyDomain.ErrKeyNotFound).Once()
		expectMetrics(mockMetrics, ctx, "key_validate", "error")

		res, err := uc.Validate(ctx, "kg_bad")
		assert.ErrorIs(t, err, apikeyDomain.ErrKeyNotFound)
		assert.Nil(t, res)
		mockNext.AssertExpectations(t)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Revoke success", func(t *testing.T) {
		mockNext.On("Revoke", ctx, keyID).Return(true, nil).Once()
		expectMetrics(mockMetrics, ctx, "key_revoke", "success")

		revoked, err := uc.Revoke(ctx, keyID)
		assert.NoError(t, err)
		assert.True(t, revoked)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("RotateWithGracePeriod error", func(t *testing.T) {
		input := &apikeyDomain.RotateKeyInput{OldKeyID: keyID}
		mockNext.On("RotateWithGracePeriod", ctx, input).Return(nil, errors.New("boom")).Once()
		expectMetrics(mockMetrics, ctx, "key_rotate", "error")

		res, err := uc.RotateWithGracePeriod(ctx, input)
		assert.Error(t, err)
		assert.Nil(t, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("CompleteRotation success", func(t *testing.T) {
		mockNext.On("CompleteRotation", ctx, keyID).Return(nil).Once()
		expectMetrics(mockMetrics, ctx, "key_rotation_complete", "success")

		assert.NoError(t, uc.CompleteRotation(ctx, keyID))
		mockMetrics.AssertExpectations(t)
	})

	t.Run("ListKeys success", func(t *testing.T) {
		filter := apikeyDomain.KeyFilter{Limit: 10}
		keys := []*apikeyDomain.APIKey{{ID: keyID}}
		mockNext.On("ListKeys", ctx, filter).Return(keys, nil).Once()
		expectMetrics(mockMetrics, ctx, "key_list", "success")

		res, err := uc.ListKeys(ctx, filter)
		assert.NoError(t, err)
		assert.Equal(t, keys, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("GetKey error", func(t *testing.T) {
		mockNext.On("GetKey", ctx, keyID).Return(nil, apikeyDomain.ErrKeyNotFound).Once()
		expectMetrics(mockMetrics, ctx, "key_get", "error")

		_, err := uc.GetKey(ctx, keyID)
		assert.Error(t, err)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("SweepRotations success", func(t *testing.T) {
		mockNext.On("SweepRotations", ctx).Return(3, nil).Once()
		expectMetrics(mockMetrics, ctx, "rotation_sweep", "success")

		count, err := uc.SweepRotations(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 3, count)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Authorize error", func(t *testing.T) {
		key := &apikeyDomain.APIKey{ID: keyID, Role: apikeyDomain.RoleViewer}
		mockNext.On("Authorize", ctx, key, apikeyDomain.WritePermission).
			Return(apikeyDomain.ErrPermissionDenied).
			Once()
		expectMetrics(mockMetrics, ctx, "permission_check", "error")

		err := uc.Authorize(ctx, key, apikeyDomain.WritePermission)
		assert.ErrorIs(t, err, apikeyDomain.ErrPermissionDenied)
		mockMetrics.AssertExpectations(t)
	})
}

func TestAuditEventUseCaseWithMetrics(t *testing.T) {
	mockNext := &usecaseMocks.MockAuditEventUseCase{}
	mockMetrics := &mockBusinessMetrics{}
	uc := usecase.NewAuditEventUseCaseWithMetrics(mockNext, mockMetrics)

	ctx := context.Background()

	t.Run("List success", func(t *testing.T) {
		events := []*apikeyDomain.AuditEvent{{ID: uuid.New()}}
		mockNext.On("List", ctx, 0, 10, (*time.Time)(nil), (*time.Time)(nil)).Return(events, nil).Once()
		expectMetrics(mockMetrics, ctx, "audit_event_list", "success")

		res, err := uc.List(ctx, 0, 10, nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, events, res)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("VerifyBatch error", func(t *testing.T) {
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		end := start.Add(24 * time.Hour)
		mockNext.On("VerifyBatch", ctx, start, end).Return(nil, errors.New("boom")).Once()
		expectMetrics(mockMetrics, ctx, "audit_event_verify_batch", "error")

		res, err := uc.VerifyBatch(ctx, start, end)
		assert.Error(t, err)
		assert.Nil(t, res)
		mockMetrics.AssertExpectations(t)
	})
}
