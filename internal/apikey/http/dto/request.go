// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	customValidation "github.com/allisson/keyguard/internal/validation"
)

// maxExpiryDays caps requested lifetimes at ten years.
const maxExpiryDays = 3650

// maxGracePeriodMinutes caps rotation grace periods at thirty days.
const maxGracePeriodMinutes = 30 * 24 * 60

// GenerateKeyRequest contains the parameters for issuing a new API key.
type GenerateKeyRequest struct {
	Role       string `json:"role"`
	Name       string `json:"name"`
	ExpiryDays *int   `json:"expiry_days,omitempty"`
}

// Validate checks if the generate key request is valid.
func (r *GenerateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Role,
			validation.Required,
			validation.By(validateRole),
		),
		validation.Field(&r.Name,
			customValidation.NotBlank,
			validation.Length(0, 255),
		),
		validation.Field(&r.ExpiryDays,
			validation.Min(0),
			validation.Max(maxExpiryDays),
		),
	)
}

// ToInput converts the request into the use case input. Call Validate first.
func (r *GenerateKeyRequest) ToInput() *apikeyDomain.GenerateKeyInput {
	role, _ := apikeyDomain.ParseRole(r.Role)
	return &apikeyDomain.GenerateKeyInput{
		Role:       role,
		Name:       r.Name,
		ExpiryDays: r.ExpiryDays,
	}
}

// RotateKeyRequest contains the parameters for rotating an API key. Every
// field is optional.
type RotateKeyRequest struct {
	Role               *string `json:"role,omitempty"`
	Name               string  `json:"name"`
	ExpiryDays         *int    `json:"expiry_days,omitempty"`
	GracePeriodMinutes *int    `json:"grace_period_minutes,omitempty"`
}

// Validate checks if the rotate key request is valid.
func (r *RotateKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Role,
			validation.NilOrNotEmpty,
			validation.By(validateRole),
		),
		validation.Field(&r.Name,
			customValidation.NotBlank,
			validation.Length(0, 255),
		),
		validation.Field(&r.ExpiryDays,
			validation.Min(0),
			validation.Max(maxExpiryDays),
		),
		validation.Field(&r.GracePeriodMinutes,
			customValidation.PositiveMinutes,
			validation.Max(maxGracePeriodMinutes),
		),
	)
}

// ToInput converts the request into the use case input for oldKeyID. Call Validate first.
func (r *RotateKeyRequest) ToInput(oldKeyID uuid.UUID) *apikeyDomain.RotateKeyInput {
	input := &apikeyDomain.RotateKeyInput{
		OldKeyID:   oldKeyID,
		Name:       r.Name,
		ExpiryDays: r.ExpiryDays,
	}
	if r.Role != nil {
		role, _ := apikeyDomain.ParseRole(*r.Role)
		input.NewRole = &role
	}
	if r.GracePeriodMinutes != nil {
		input.GracePeriod = time.Duration(*r.GracePeriodMinutes) * time.Minute
	}
	return input
}

// validateRole rejects anything outside the closed role set.
func validateRole(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case *string:
		if v == nil {
			return nil
		}
		raw = *v
	default:
		return validation.NewError("validation_role_type", "must be a string")
	}
	if raw == "" {
		return nil
	}
	if _, err := apikeyDomain.ParseRole(raw); err != nil {
		return validation.NewError("validation_role", "must be one of viewer, operator, admin")
	}
	return nil
}
