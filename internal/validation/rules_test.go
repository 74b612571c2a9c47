package validation

import (
	"testing"

	validation "github.com/jellydator/validation"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/keyguard/internal/errors"
)

func TestWrapValidationError(t *testing.T) {
	assert.Nil(t, WrapValidationError(nil))

	err := WrapValidationError(validation.NewError("x", "name: must not be blank"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "must not be blank")
}

func TestNotBlank(t *testing.T) {
	assert.NoError(t, validation.Validate("deploy bot", NotBlank))
	assert.Error(t, validation.Validate("   ", NotBlank))
	// Empty values are left to validation.Required.
	assert.NoError(t, validation.Validate("", NotBlank))
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, validation.Validate("ci-bot", NoWhitespace))
	assert.Error(t, validation.Validate(" ci-bot", NoWhitespace))
	assert.Error(t, validation.Validate("ci-bot\n", NoWhitespace))
}

func TestCIDRList(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		shouldErr bool
	}{
		{name: "single ipv4", value: "10.0.0.0/24"},
		{name: "mixed families with spaces", value: "10.0.0.0/8, 2001:db8::/32"},
		{name: "trailing comma", value: "192.168.1.0/24,"},
		{name: "bare address", value: "10.0.0.5", shouldErr: true},
		{name: "garbage", value: "10.0.0.0/24,not-a-cidr", shouldErr: true},
		{name: "prefix too long", value: "10.0.0.0/33", shouldErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.Validate(tt.value, CIDRList)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPositiveMinutes(t *testing.T) {
	zero, sixty := 0, 60

	assert.NoError(t, validation.Validate((*int)(nil), PositiveMinutes))
	assert.NoError(t, validation.Validate(&sixty, PositiveMinutes))
	assert.Error(t, validation.Validate(&zero, PositiveMinutes))
}

func TestBase64Key(t *testing.T) {
	rule := Base64Key(16)

	assert.NoError(t, validation.Validate("c2VjcmV0LWtleS1tYXRlcmlhbA==", rule))
	assert.NoError(t, validation.Validate("", rule))

	err := validation.Validate("not base64!", rule)
	assert.EqualError(t, err, "must be valid base64-encoded data")

	err = validation.Validate("c2hvcnQ=", rule)
	assert.EqualError(t, err, "must decode to at least 16 bytes")
}
