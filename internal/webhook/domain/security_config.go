// Package domain defines the webhook authentication pipeline configuration and results.
package domain

import (
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// SecurityConfigInput is the loosely typed form of the webhook security
// settings as read from configuration.
type SecurityConfigInput struct {
	AllowedCIDRs     []string
	DeniedCIDRs      []string
	EnforceAllowlist bool
	SharedSecret     string
	RequireSecret    bool
	SigningSecret    string
	RequireSignature bool
}

// SecurityConfig is the validated webhook security policy. Build it with
// NewSecurityConfig; the zero value accepts every caller.
type SecurityConfig struct {
	allowed          *netipx.IPSet
	denied           *netipx.IPSet
	enforceAllowlist bool
	sharedSecret     string
	requireSecret    bool
	signingSecret    []byte
	requireSignature bool
}

// NewSecurityConfig validates input and builds the IP sets once. Any malformed
// CIDR, or a mandatory check without its secret, is an error.
func NewSecurityConfig(input SecurityConfigInput) (*SecurityConfig, error) {
	allowed, err := buildIPSet(input.AllowedCIDRs)
	if err != nil {
		return nil, fmt.Errorf("allowed networks: %w", err)
	}

	denied, err := buildIPSet(input.DeniedCIDRs)
	if err != nil {
		return nil, fmt.Errorf("denied networks: %w", err)
	}

	if input.RequireSecret && input.SharedSecret == "" {
		return nil, fmt.Errorf("%w: shared secret is required but not configured", ErrMissingSecret)
	}
	if input.RequireSignature && input.SigningSecret == "" {
		return nil, fmt.Errorf("%w: signature is required but no signing secret is configured", ErrMissingSecret)
	}

	return &SecurityConfig{
		allowed:          allowed,
		denied:           denied,
		enforceAllowlist: input.EnforceAllowlist,
		sharedSecret:     input.SharedSecret,
		requireSecret:    input.RequireSecret,
		signingSecret:    []byte(input.SigningSecret),
		requireSignature: input.RequireSignature,
	}, nil
}

// buildIPSet parses cidrs into an IPSet. Blank entries are ignored.
func buildIPSet(cidrs []string) (*netipx.IPSet, error) {
	var builder netipx.IPSetBuilder
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCIDR, cidr)
		}
		builder.AddPrefix(prefix.Masked())
	}
	return builder.IPSet()
}

// hasAllowlist reports whether at least one allowed network is configured.
func (c *SecurityConfig) hasAllowlist() bool {
	return c.allowed != nil && len(c.allowed.Prefixes()) > 0
}

// filtersIPs reports whether the IP stage can reject anything.
func (c *SecurityConfig) filtersIPs() bool {
	return c.enforceAllowlist || c.hasAllowlist() || (c.denied != nil && len(c.denied.Prefixes()) > 0)
}

// AllowsIP applies the deny-then-allow rule to addr. A denied address is
// rejected regardless of the allowlist. Otherwise a non-empty allowlist must
// contain addr, and an empty one admits everything unless enforcement is on.
// An unparseable address is rejected whenever any IP rule is active.
func (c *SecurityConfig) AllowsIP(addr netip.Addr) bool {
	if !c.filtersIPs() {
		return true
	}
	if !addr.IsValid() {
		return false
	}
	addr = addr.Unmap()

	if c.denied != nil && c.denied.Contains(addr) {
		return false
	}
	if c.hasAllowlist() {
		return c.allowed.Contains(addr)
	}
	return !c.enforceAllowlist
}

// RequiresSecret reports whether the shared-secret stage runs.
func (c *SecurityConfig) RequiresSecret() bool {
	return c.requireSecret
}

// SharedSecret returns the configured shared secret.
func (c *SecurityConfig) SharedSecret() string {
	return c.sharedSecret
}

// RequiresSignature reports whether the signature stage runs.
func (c *SecurityConfig) RequiresSignature() bool {
	return c.requireSignature && len(c.signingSecret) > 0
}

// SigningSecret returns the HMAC key used to verify payload signatures.
func (c *SecurityConfig) SigningSecret() []byte {
	return c.signingSecret
}
