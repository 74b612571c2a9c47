package cache

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

var errInvalidPayload = errors.New("invalid cached key payload")

// cachedKeyPayload is the wire form of a CachedKey in the distributed tier.
type cachedKeyPayload struct {
	ID          uuid.UUID  `json:"id"`
	SecretHash  string     `json:"secret_hash"`
	KeyPrefix   string     `json:"key_prefix"`
	Role        string     `json:"role"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	GraceEndsAt *time.Time `json:"grace_ends_at,omitempty"`
	CachedAt    time.Time  `json:"cached_at"`
}

func encodeCachedKey(entry *apikeyDomain.CachedKey, cachedAt time.Time) ([]byte, error) {
	key := entry.Key
	return json.Marshal(cachedKeyPayload{
		ID:          key.ID,
		SecretHash:  key.SecretHash,
		KeyPrefix:   key.KeyPrefix,
		Role:        string(key.Role),
		Name:        key.Name,
		Status:      string(key.Status),
		CreatedAt:   key.CreatedAt,
		ExpiresAt:   key.ExpiresAt,
		LastUsedAt:  key.LastUsedAt,
		GraceEndsAt: entry.GraceEndsAt,
		CachedAt:    cachedAt,
	})
}

// decodeCachedKey also returns the time the entry was written to the
// distributed tier, zero when the payload does not carry one.
func decodeCachedKey(data []byte) (*apikeyDomain.CachedKey, time.Time, error) {
	var payload cachedKeyPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, time.Time{}, err
	}

	// Reject anything that wouldn't have come from a stored key.
	role := apikeyDomain.Role(payload.Role)
	status := apikeyDomain.Status(payload.Status)
	if !role.IsValid() || !status.IsValid() || payload.ID == uuid.Nil || payload.SecretHash == "" {
		return nil, time.Time{}, errInvalidPayload
	}

	return &apikeyDomain.CachedKey{
		Key: &apikeyDomain.APIKey{
			ID:         payload.ID,
			SecretHash: payload.SecretHash,
			KeyPrefix:  payload.KeyPrefix,
			Role:       role,
			Name:       payload.Name,
			Status:     status,
			CreatedAt:  payload.CreatedAt,
			ExpiresAt:  payload.ExpiresAt,
			LastUsedAt: payload.LastUsedAt,
		},
		GraceEndsAt: payload.GraceEndsAt,
	}, payload.CachedAt, nil
}
