// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/base64"
	"net/netip"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/keyguard/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// CIDRList validates a comma-separated list of CIDR networks. Blank items are ignored.
var CIDRList = validation.NewStringRuleWithError(
	func(s string) bool {
		for _, item := range strings.Split(s, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if _, err := netip.ParsePrefix(item); err != nil {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_cidr_list", "must be a comma-separated list of CIDR networks"),
)

// PositiveMinutes validates that an optional minute count is greater than zero when set.
var PositiveMinutes = validation.By(func(value interface{}) error {
	minutes, ok := value.(*int)
	if !ok {
		return validation.NewError("validation_minutes_type", "must be an integer")
	}
	if minutes != nil && *minutes <= 0 {
		return validation.NewError("validation_minutes_positive", "must be greater than zero")
	}
	return nil
})

// Base64Key validates optional standard base64 key material that decodes to at
// least minBytes bytes. Empty values pass so Required stays in charge of presence.
func Base64Key(minBytes int) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, ok := value.(string)
		if !ok {
			return validation.NewError("validation_base64_key_type", "must be a string")
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return validation.NewError("validation_base64_key", "must be valid base64-encoded data")
		}
		if len(decoded) < minBytes {
			return validation.NewError("validation_base64_key_size", "must decode to at least {{.min}} bytes").
				SetParams(map[string]interface{}{"min": minBytes})
		}
		return nil
	})
}
