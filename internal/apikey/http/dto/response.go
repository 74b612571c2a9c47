package dto

import (
	"time"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

// KeyResponse represents an API key in API responses. The secret hash is never included.
type KeyResponse struct {
	ID          string     `json:"id"`
	KeyPrefix   string     `json:"key_prefix"`
	Role        string     `json:"role"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
}

// MapKeyToResponse converts a domain key to an API response.
func MapKeyToResponse(key *apikeyDomain.APIKey) KeyResponse {
	permissions := key.Role.Permissions().List()
	names := make([]string, 0, len(permissions))
	for _, p := range permissions {
		names = append(names, string(p))
	}

	return KeyResponse{
		ID:          key.ID.String(),
		KeyPrefix:   key.KeyPrefix,
		Role:        string(key.Role),
		Name:        key.Name,
		Status:      string(key.Status),
		Permissions: names,
		CreatedAt:   key.CreatedAt,
		ExpiresAt:   key.ExpiresAt,
		LastUsedAt:  key.LastUsedAt,
	}
}

// IssuedKeyResponse contains a newly generated or rotated key.
// SECURITY: The token is only returned once and must be saved securely.
type IssuedKeyResponse struct {
	Token          string      `json:"token"` //nolint:gosec // returned once on creation
	Key            KeyResponse `json:"key"`
	RotatedFrom    string      `json:"rotated_from,omitempty"`
	GracePeriodEnd *time.Time  `json:"grace_period_end,omitempty"`
}

// MapIssuedKeyToResponse converts an issued key to an API response.
func MapIssuedKeyToResponse(issued *apikeyDomain.IssuedKey) IssuedKeyResponse {
	response := IssuedKeyResponse{
		Token:          issued.PlainToken,
		Key:            MapKeyToResponse(issued.Key),
		GracePeriodEnd: issued.GracePeriodEnd,
	}
	if issued.RotatedFrom != nil {
		response.RotatedFrom = issued.RotatedFrom.String()
	}
	return response
}

// ListKeysResponse represents a paginated list of keys in API responses.
type ListKeysResponse struct {
	Data []KeyResponse `json:"data"`
}

// MapKeysToListResponse converts a slice of domain keys to a list API response.
func MapKeysToListResponse(keys []*apikeyDomain.APIKey) ListKeysResponse {
	responses := make([]KeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, MapKeyToResponse(key))
	}
	return ListKeysResponse{Data: responses}
}

// RevokeKeyResponse reports the outcome of a revoke call.
type RevokeKeyResponse struct {
	Revoked bool `json:"revoked"`
}

// AuditEventResponse represents an audit event in API responses.
type AuditEventResponse struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	KeyID     string         `json:"key_id,omitempty"`
	Actor     string         `json:"actor"`
	Outcome   string         `json:"outcome"`
	Reason    string         `json:"reason,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IsSigned  bool           `json:"is_signed"`
	CreatedAt time.Time      `json:"created_at"`
}

// MapAuditEventToResponse converts a domain audit event to an API response.
func MapAuditEventToResponse(event *apikeyDomain.AuditEvent) AuditEventResponse {
	response := AuditEventResponse{
		ID:        event.ID.String(),
		EventType: string(event.EventType),
		Actor:     event.Actor,
		Outcome:   string(event.Outcome),
		Reason:    event.Reason,
		RequestID: event.RequestID,
		Metadata:  event.Metadata,
		IsSigned:  event.IsSigned,
		CreatedAt: event.CreatedAt,
	}
	if event.KeyID != nil {
		response.KeyID = event.KeyID.String()
	}
	return response
}

// ListAuditEventsResponse represents a paginated list of audit events in API responses.
type ListAuditEventsResponse struct {
	Data []AuditEventResponse `json:"data"`
}

// MapAuditEventsToListResponse converts a slice of domain audit events to a list API response.
func MapAuditEventsToListResponse(events []*apikeyDomain.AuditEvent) ListAuditEventsResponse {
	responses := make([]AuditEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, MapAuditEventToResponse(event))
	}
	return ListAuditEventsResponse{Data: responses}
}
