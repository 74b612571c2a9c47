// Package domain defines API key lifecycle and authorization domain models.
// Implements role-based access control over rotating bearer credentials with audit logging.
package domain

import "time"

// Permission identifies an action a credential may perform.
type Permission string

const (
	// ReadPermission allows reading resource data.
	ReadPermission Permission = "read"

	// ListPermission allows listing resources.
	ListPermission Permission = "list"

	// WritePermission allows creating or updating resource data.
	WritePermission Permission = "write"

	// ExecutePermission allows triggering workflows and actions.
	ExecutePermission Permission = "execute"

	// ManageKeysPermission allows issuing, rotating and revoking API keys.
	ManageKeysPermission Permission = "manage_keys"

	// ManageUsersPermission allows administering users.
	ManageUsersPermission Permission = "manage_users"
)

// AllPermissions lists every known permission in ascending privilege order.
var AllPermissions = []Permission{
	ReadPermission,
	ListPermission,
	WritePermission,
	ExecutePermission,
	ManageKeysPermission,
	ManageUsersPermission,
}

// DefaultGracePeriod is used by rotations that don't specify one.
const DefaultGracePeriod = 60 * time.Minute

// KeyPrefixLength is the number of leading raw token characters kept for identification.
const KeyPrefixLength = 8

// DefaultListLimit caps listings that don't request a page size.
const DefaultListLimit = 50
