// Package mocks provides mock implementations of the API key use cases for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

// MockKeyUseCase is a mock implementation of KeyUseCase for testing.
type MockKeyUseCase struct {
	mock.Mock
}

// Generate mocks the Generate method of KeyUseCase.
func (m *MockKeyUseCase) Generate(
	ctx context.Context,
	input *apikeyDomain.GenerateKeyInput,
) (*apikeyDomain.IssuedKey, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apikeyDomain.IssuedKey), args.Error(1)
}

// Validate mocks the Validate method of KeyUseCase.
func (m *MockKeyUseCase) Validate(ctx context.Context, rawToken string) (*apikeyDomain.APIKey, error) {
	args := m.Called(ctx, rawToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apikeyDomain.APIKey), args.Error(1)
}

// Revoke mocks the Revoke method of KeyUseCase.
func (m *MockKeyUseCase) Revoke(ctx context.Context, keyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, keyID)
	return args.Bool(0), args.Error(1)
}

// RotateWithGracePeriod mocks the RotateWithGracePeriod method of KeyUseCase.
func (m *MockKeyUseCase) RotateWithGracePeriod(
	ctx context.Context,
	input *apikeyDomain.RotateKeyInput,
) (*apikeyDomain.IssuedKey, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apikeyDomain.IssuedKey), args.Error(1)
}

// CompleteRotation mocks the CompleteRotation method of KeyUseCase.
func (m *MockKeyUseCase) CompleteRotation(ctx context.Context, oldKeyID uuid.UUID) error {
	args := m.Called(ctx, oldKeyID)
	return args.Error(0)
}

// ListKeys mocks the ListKeys method of KeyUseCase.
func (m *MockKeyUseCase) ListKeys(
	ctx context.Context,
	filter apikeyDomain.KeyFilter,
) ([]*apikeyDomain.APIKey, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*apikeyDomain.APIKey), args.Error(1)
}

// GetKey mocks the GetKey method of KeyUseCase.
func (m *MockKeyUseCase) GetKey(ctx context.Context, keyID uuid.UUID) (*apikeyDomain.APIKey, error) {
	args := m.Called(ctx, keyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apikeyDomain.APIKey), args.Error(1)
}

// SweepRotations mocks the SweepRotations method of KeyUseCase.
func (m *MockKeyUseCase) SweepRotations(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// Authorize mocks the Authorize method of KeyUseCase.
func (m *MockKeyUseCase) Authorize(
	ctx context.Context,
	key *apikeyDomain.APIKey,
	permission apikeyDomain.Permission,
) error {
	args := m.Called(ctx, key, permission)
	return args.Error(0)
}

// MockAuditEventUseCase is a mock implementation of AuditEventUseCase for testing.
type MockAuditEventUseCase struct {
	mock.Mock
}

// List mocks the List method of AuditEventUseCase.
func (m *MockAuditEventUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*apikeyDomain.AuditEvent, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*apikeyDomain.AuditEvent), args.Error(1)
}

// VerifyBatch mocks the VerifyBatch method of AuditEventUseCase.
func (m *MockAuditEventUseCase) VerifyBatch(
	ctx context.Context,
	start, end time.Time,
) (*apikeyDomain.AuditVerificationReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apikeyDomain.AuditVerificationReport), args.Error(1)
}
