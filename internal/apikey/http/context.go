// Package http provides HTTP middleware and handlers for API key authentication and management.
package http

import (
	"context"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

// keyContextKey is a context key type for storing the authenticated API key.
type keyContextKey struct{}

// WithKey stores an authenticated API key in the context.
func WithKey(ctx context.Context, key *apikeyDomain.APIKey) context.Context {
	return context.WithValue(ctx, keyContextKey{}, key)
}

// GetKey retrieves the authenticated API key from the context.
// Returns (key, true) if a key is present, or (nil, false) if no key was set.
func GetKey(ctx context.Context) (*apikeyDomain.APIKey, bool) {
	key, ok := ctx.Value(keyContextKey{}).(*apikeyDomain.APIKey)
	return key, ok
}
